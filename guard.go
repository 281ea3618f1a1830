package authguard

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ethanvx/authguard/internal/clock"
	"github.com/ethanvx/authguard/internal/events"
	"github.com/ethanvx/authguard/internal/ratelimit"
	"github.com/ethanvx/authguard/internal/refresh"
)

// Guard is the process-wide resilience authority for a login flow: it owns
// the adaptive rate limiter, its sweeper, and the token-refresh coordinator.
// All methods are safe for concurrent use after [Builder.Build].
type Guard struct {
	config      Config
	limiter     *ratelimit.Limiter
	sweeper     *ratelimit.Sweeper
	coordinator *refresh.Coordinator
	bus         *events.Bus
	metrics     *Metrics
	audit       *auditDispatcher
	logger      *zap.Logger
	clock       clock.Clock
	closed      atomic.Bool
}

// Close stops the sweeper, clears refresh timers and listeners, and drains
// the audit pipeline. Idempotent. An in-flight refresh sequence still runs
// to completion.
func (g *Guard) Close() {
	if g == nil || !g.closed.CompareAndSwap(false, true) {
		return
	}
	if g.sweeper != nil {
		g.sweeper.Stop()
	}
	if g.coordinator != nil {
		g.coordinator.Cleanup()
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

// MetricsSnapshot copies the current counter values.
func (g *Guard) MetricsSnapshot() MetricsSnapshot {
	if g == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return g.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (g *Guard) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// observeRefreshEvents mirrors coordinator lifecycle events into the metrics
// registry and the audit pipeline. Timer-driven refreshes never pass through
// a Guard method, so this is the one place every outcome is visible.
func (g *Guard) observeRefreshEvents() {
	g.bus.Subscribe(EventRefreshSucceeded, func(ev Event) {
		g.metrics.Inc(MetricRefreshSuccess)
		g.emitAudit(ev.Type, "", true, "")
	})
	g.bus.Subscribe(EventRefreshFailed, func(ev Event) {
		g.metrics.Inc(MetricRefreshFailure)
		g.emitAudit(ev.Type, "", false, eventError(ev))
	})
	g.bus.Subscribe(EventRefreshAttemptFailed, func(Event) {
		g.metrics.Inc(MetricRefreshAttemptFailure)
	})
	g.bus.Subscribe(EventRefreshScheduled, func(Event) {
		g.metrics.Inc(MetricRefreshScheduled)
	})
	g.bus.Subscribe(EventRefreshNeeded, func(Event) {
		g.metrics.Inc(MetricRefreshNeeded)
	})
	g.bus.Subscribe(EventRefreshTimerCleared, func(Event) {
		g.metrics.Inc(MetricRefreshTimerCleared)
	})
}

func eventError(ev Event) string {
	if msg, ok := ev.Data["error"].(string); ok {
		return msg
	}
	return ""
}

func (g *Guard) emitAudit(eventType, identifier string, success bool, errMsg string) {
	if g.audit == nil {
		return
	}
	g.audit.Emit(context.Background(), AuditEvent{
		Timestamp:  g.clock.Now(),
		EventType:  eventType,
		Identifier: identifier,
		Success:    success,
		Error:      errMsg,
	})
}

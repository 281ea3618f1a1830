// Package refresh implements the token-refresh coordinator: a single-flight
// refresh executor with bounded exponential-backoff retry and proactive
// timer-based scheduling ahead of credential expiry.
package refresh

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ethanvx/authguard/internal/clock"
	"github.com/ethanvx/authguard/internal/events"
)

// Lifecycle event types emitted through the coordinator's bus.
const (
	EventRefreshStarted   = "refresh.started"
	EventRefreshSucceeded = "refresh.succeeded"
	EventRefreshFailed    = "refresh.failed"
	EventAttemptFailed    = "refresh.attempt_failed"
	EventRefreshNeeded    = "refresh.needed"
	EventScheduled        = "refresh.scheduled"
	EventTimerCleared     = "refresh.timer_cleared"
)

// Session is the credential material returned by the identity provider. Only
// ExpiresAt is interpreted by the coordinator; tokens are opaque.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider performs the actual credential exchange with the identity
// provider. Treated as a black box returning success or failure.
type Provider interface {
	PerformRefresh(ctx context.Context) (*Session, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (*Session, error)

func (f ProviderFunc) PerformRefresh(ctx context.Context) (*Session, error) {
	return f(ctx)
}

// Result is the final outcome of one refresh sequence. Every caller that
// attached to the sequence observes the same Result.
type Result struct {
	Success  bool
	Session  *Session
	Err      error
	Attempts int
}

// Config holds coordinator tuning parameters. Fixed at construction.
type Config struct {
	// Threshold is how far ahead of expiry a proactive refresh is aimed.
	Threshold time.Duration
	// SafetyBuffer widens the proactive window to absorb clock slop.
	SafetyBuffer time.Duration
	// MaxRetryAttempts bounds provider calls inside one refresh sequence.
	MaxRetryAttempts int
	// BaseDelay, MaxDelay, and BackoffFactor shape the inter-attempt backoff:
	// min(BaseDelay * BackoffFactor^(n-1), MaxDelay) plus up to a second of
	// jitter.
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// call is the shared handle concurrent callers attach to. result is written
// exactly once, before done is closed.
type call struct {
	done   chan struct{}
	result Result
}

// Coordinator keeps a session's credential fresh: at most one refresh in
// flight, retries with backoff and jitter, and proactive re-scheduling from
// each new expiry.
type Coordinator struct {
	cfg      Config
	provider Provider
	clock    clock.Clock
	bus      *events.Bus
	logger   *zap.Logger

	mu       sync.Mutex
	inflight *call
	timer    clock.Timer
	timerGen uint64
}

// NewCoordinator wires a coordinator to its provider, clock, and event bus.
func NewCoordinator(cfg Config, provider Provider, clk clock.Clock, bus *events.Bus, logger *zap.Logger) *Coordinator {
	if clk == nil {
		clk = clock.System()
	}
	if bus == nil {
		bus = events.NewBus(clk, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:      cfg,
		provider: provider,
		clock:    clk,
		bus:      bus,
		logger:   logger,
	}
}

// Bus exposes the coordinator's event bus for subscription.
func (c *Coordinator) Bus() *events.Bus {
	return c.bus
}

// Refresh runs one refresh sequence, or attaches to the sequence already in
// flight: concurrent callers all receive the identical Result and trigger
// exactly one provider call sequence. A waiting caller whose context is
// cancelled gets the context error; the sequence itself runs to completion.
func (c *Coordinator) Refresh(ctx context.Context) Result {
	c.mu.Lock()
	if cl := c.inflight; cl != nil {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.result
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		}
	}

	cl := &call{done: make(chan struct{})}
	c.inflight = cl
	c.mu.Unlock()

	// The sequence is not cancelable once started; detach from the
	// initiating caller's deadline.
	res := c.execute(context.WithoutCancel(ctx))

	c.mu.Lock()
	cl.result = res
	c.inflight = nil
	c.mu.Unlock()
	close(cl.done)

	return res
}

// IsRefreshing reports whether a refresh sequence is currently in flight.
func (c *Coordinator) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) execute(ctx context.Context) Result {
	c.bus.Emit(EventRefreshStarted, nil)

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.cfg.MaxRetryAttempts; attempt++ {
		attempts = attempt

		sess, err := c.provider.PerformRefresh(ctx)
		if err == nil {
			c.bus.Emit(EventRefreshSucceeded, map[string]any{
				"attempts":   attempt,
				"expires_at": sess.ExpiresAt,
			})
			return Result{Success: true, Session: sess, Attempts: attempt}
		}

		lastErr = Classify(err)
		c.bus.Emit(EventAttemptFailed, map[string]any{
			"attempt": attempt,
			"error":   lastErr.Error(),
		})

		if !Retryable(lastErr) {
			c.logger.Warn("refresh aborted on non-retryable failure",
				zap.Int("attempt", attempt), zap.Error(lastErr))
			break
		}

		if attempt < c.cfg.MaxRetryAttempts {
			if err := c.clock.Sleep(ctx, c.backoffDelay(attempt)); err != nil {
				lastErr = Classify(err)
				break
			}
		}
	}

	if lastErr == nil {
		lastErr = ErrRefreshFailed
	}
	c.bus.Emit(EventRefreshFailed, map[string]any{
		"attempts": attempts,
		"error":    lastErr.Error(),
	})
	return Result{Err: lastErr, Attempts: attempts}
}

// backoffDelay computes the wait before the next attempt: exponential growth
// capped at MaxDelay, plus jitter in [0, 1s) to avoid synchronized retries.
func (c *Coordinator) backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(c.cfg.BaseDelay) * math.Pow(c.cfg.BackoffFactor, float64(attempt-1)))
	if d > c.cfg.MaxDelay || d <= 0 {
		d = c.cfg.MaxDelay
	}
	return d + time.Duration(rand.Int63n(int64(time.Second)))
}

// ScheduleRefresh arms a one-shot timer to refresh proactively ahead of the
// given expiry. Any previously armed timer is cancelled first. When the
// expiry is already inside the threshold+buffer window, no timer is armed
// and a refresh-needed event is emitted instead; the caller decides whether
// to invoke Refresh immediately.
func (c *Coordinator) ScheduleRefresh(expiresAt time.Time) {
	c.mu.Lock()
	c.stopTimerLocked()

	now := c.clock.Now()
	refreshAt := expiresAt.Add(-c.cfg.Threshold - c.cfg.SafetyBuffer)
	if !refreshAt.After(now) {
		c.mu.Unlock()
		c.bus.Emit(EventRefreshNeeded, map[string]any{
			"expires_at": expiresAt,
		})
		return
	}

	c.timerGen++
	gen := c.timerGen
	delay := refreshAt.Sub(now)
	c.timer = c.clock.AfterFunc(delay, func() { c.onTimer(gen) })
	c.mu.Unlock()

	c.bus.Emit(EventScheduled, map[string]any{
		"refresh_at": refreshAt,
		"expires_at": expiresAt,
	})
}

func (c *Coordinator) onTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		// Cleared or superseded after the callback was already dispatched.
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	res := c.Refresh(context.Background())
	if res.Success && res.Session != nil {
		// Recursive re-arm from the fresh expiry.
		c.ScheduleRefresh(res.Session.ExpiresAt)
	}
	// execute already emitted the failure event; a failed proactive refresh
	// does not re-arm.
}

// ClearRefreshTimer cancels a pending proactive refresh. It emits a
// timer-cleared event only when a timer was actually cancelled, and has no
// effect on a refresh already executing.
func (c *Coordinator) ClearRefreshTimer() {
	c.mu.Lock()
	cleared := c.timer != nil
	c.stopTimerLocked()
	c.mu.Unlock()

	if cleared {
		c.bus.Emit(EventTimerCleared, nil)
	}
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// Cleanup clears the pending timer and every listener, returning the
// coordinator to a dormant idle state. Idempotent. An in-flight refresh
// sequence still runs to completion.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	c.bus.Clear()
}

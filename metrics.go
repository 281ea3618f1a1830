package authguard

import (
	"sync/atomic"
)

// MetricID identifies one counter in the in-process metrics registry.
type MetricID uint16

const (
	// MetricLimitAllowed counts limit checks that admitted the attempt.
	MetricLimitAllowed MetricID = iota
	// MetricLimitDenied counts limit checks that denied the attempt.
	MetricLimitDenied
	// MetricLimitBlocked counts identifiers newly entering the blocked state.
	MetricLimitBlocked
	// MetricLimitReset counts explicit and success-driven limit resets.
	MetricLimitReset
	// MetricLimitBypass counts checks short-circuited by bypass policy.
	MetricLimitBypass
	// MetricAdminBlock counts administrative block overrides.
	MetricAdminBlock
	// MetricSweepEvicted counts entries evicted by the sweeper.
	MetricSweepEvicted
	// MetricRefreshSuccess counts refresh sequences ending in success.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh sequences ending in failure.
	MetricRefreshFailure
	// MetricRefreshAttemptFailure counts individual failed provider calls.
	MetricRefreshAttemptFailure
	// MetricRefreshScheduled counts armed proactive refresh timers.
	MetricRefreshScheduled
	// MetricRefreshNeeded counts immediate-refresh determinations.
	MetricRefreshNeeded
	// MetricRefreshTimerCleared counts cancelled proactive refresh timers.
	MetricRefreshTimerCleared
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed-size registry of atomic counters. A disabled registry
// turns every operation into a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a registry honoring the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether the registry records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments the counter by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies all counters. Counters advance independently, so the
// snapshot is not a single atomic cut, which is fine for monitoring.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// Package ratelimit implements the adaptive per-identifier throttle that
// protects the login flow: a rolling failed-attempt window with progressive
// penalty escalation, backed by a pluggable entry store.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ethanvx/authguard/internal/clock"
)

// Config holds limiter tuning parameters. Fixed at construction.
type Config struct {
	// MaxAttempts is the number of failed attempts tolerated inside one
	// window before the identifier is blocked.
	MaxAttempts int
	// Window is the rolling duration during which failures accumulate
	// before an idle identifier auto-resets.
	Window time.Duration
	// ProgressiveDelays is the ordered list of escalating block durations.
	// The n-th violation past MaxAttempts selects the n-th delay, saturating
	// at the last element.
	ProgressiveDelays []time.Duration
	// BypassRequestTypes lists request categories exempt from throttling,
	// e.g. credential-reset requests.
	BypassRequestTypes []string
}

// Decision is the outcome of a limit check. All abnormal conditions resolve
// to a deterministic Decision; the limiter itself only errors when the entry
// store backend fails.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the current window or block ends. Zero when the
	// identifier is untracked.
	ResetAt time.Time
	// RetryAfter is how long a denied caller must wait, rounded up to whole
	// seconds. Zero when allowed.
	RetryAfter time.Duration
}

// Stats summarizes limiter occupancy.
type Stats struct {
	Tracked       int
	Blocked       int
	MeanAttempts  float64
	TotalAttempts int
}

// Limiter tracks per-identifier attempt counters and blocking windows.
// A single mutex orders all entry accesses, which keeps check/record pairs
// for one identifier observed in invocation order.
type Limiter struct {
	mu     sync.Mutex
	store  Store
	clock  clock.Clock
	cfg    Config
	bypass map[string]struct{}
}

// New creates a Limiter over the given store.
func New(store Store, clk clock.Clock, cfg Config) *Limiter {
	if clk == nil {
		clk = clock.System()
	}
	bypass := make(map[string]struct{}, len(cfg.BypassRequestTypes))
	for _, t := range cfg.BypassRequestTypes {
		bypass[t] = struct{}{}
	}
	return &Limiter{
		store:  store,
		clock:  clk,
		cfg:    cfg,
		bypass: bypass,
	}
}

// Check decides whether an authentication attempt for the identifier may
// proceed. Expired entries are lazily deleted; an identifier at or past the
// attempt budget is blocked with the current progressive penalty.
func (l *Limiter) Check(ctx context.Context, identifier string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked(ctx, identifier)
}

// Status reports the identifier's current limit state. It is interchangeable
// with Check: the same result shape and the same lazy expiry cleanup.
func (l *Limiter) Status(ctx context.Context, identifier string) (Decision, error) {
	return l.Check(ctx, identifier)
}

func (l *Limiter) checkLocked(ctx context.Context, identifier string) (Decision, error) {
	now := l.clock.Now()

	e, err := l.store.Get(ctx, identifier)
	if err != nil {
		return Decision{}, err
	}
	if e != nil && e.Expired(now) {
		if err := l.store.Delete(ctx, identifier); err != nil {
			return Decision{}, err
		}
		e = nil
	}
	if e == nil {
		return Decision{Allowed: true, Remaining: l.cfg.MaxAttempts}, nil
	}

	if e.Blocked {
		return Decision{
			ResetAt:    e.ResetTime,
			RetryAfter: ceilSeconds(e.ResetTime.Sub(now)),
		}, nil
	}

	if e.Attempts >= l.cfg.MaxAttempts {
		// Budget exhausted but not yet flagged: apply the penalty now.
		delay := l.penalty(e.Attempts)
		e.Blocked = true
		e.ResetTime = now.Add(delay)
		if err := l.store.Put(ctx, e); err != nil {
			return Decision{}, err
		}
		return Decision{
			ResetAt:    e.ResetTime,
			RetryAfter: ceilSeconds(delay),
		}, nil
	}

	return Decision{
		Allowed:   true,
		Remaining: l.cfg.MaxAttempts - e.Attempts,
		ResetAt:   e.ResetTime,
	}, nil
}

// RecordAttempt reports the outcome of an authentication attempt. Success
// clears the identifier completely; failure creates or escalates its entry.
// It reports whether this attempt newly pushed the identifier into the
// blocked state.
func (l *Limiter) RecordAttempt(ctx context.Context, identifier string, success bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if success {
		return false, l.store.Delete(ctx, identifier)
	}

	now := l.clock.Now()

	e, err := l.store.Get(ctx, identifier)
	if err != nil {
		return false, err
	}
	if e != nil && e.Expired(now) {
		e = nil
	}
	wasBlocked := e != nil && e.Blocked

	if e == nil {
		e = &Entry{
			Identifier:   identifier,
			Attempts:     1,
			FirstAttempt: now,
			LastAttempt:  now,
			ResetTime:    now.Add(l.cfg.Window),
		}
	} else {
		e.Attempts++
		e.LastAttempt = now
	}

	if e.Attempts >= l.cfg.MaxAttempts {
		// Violation index is recomputed from the live attempt count, so an
		// identifier that keeps failing while blocked re-escalates its
		// penalty before the current block even expires.
		e.Blocked = true
		e.ResetTime = now.Add(l.penalty(e.Attempts))
	}

	if err := l.store.Put(ctx, e); err != nil {
		return false, err
	}
	return e.Blocked && !wasBlocked, nil
}

// Reset unconditionally removes the identifier's entry. No-op when absent.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, identifier)
}

// Block forces the identifier into the blocked state for the given duration
// regardless of its attempt count. Administrative override.
func (l *Limiter) Block(ctx context.Context, identifier string, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	e, err := l.store.Get(ctx, identifier)
	if err != nil {
		return err
	}
	if e == nil || e.Expired(now) {
		e = &Entry{
			Identifier:   identifier,
			FirstAttempt: now,
			LastAttempt:  now,
		}
	}

	// Keep the blocked-implies-saturated invariant intact.
	if e.Attempts < l.cfg.MaxAttempts {
		e.Attempts = l.cfg.MaxAttempts
	}
	e.Blocked = true
	e.ResetTime = now.Add(d)

	return l.store.Put(ctx, e)
}

// ShouldBypass reports whether the request category is exempt from
// throttling by policy. Pure predicate, no state mutation.
func (l *Limiter) ShouldBypass(_ string, requestType string) bool {
	_, ok := l.bypass[requestType]
	return ok
}

// Cleanup removes every expired entry and returns how many were evicted.
// Safe to call concurrently with Check and RecordAttempt.
func (l *Limiter) Cleanup(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.Entries(ctx)
	if err != nil {
		return 0, err
	}

	now := l.clock.Now()
	evicted := 0
	for _, e := range entries {
		if !e.Expired(now) {
			continue
		}
		if err := l.store.Delete(ctx, e.Identifier); err != nil {
			return evicted, err
		}
		evicted++
	}
	return evicted, nil
}

// Statistics returns occupancy counts across tracked identifiers. Expired
// entries are logically absent and excluded.
func (l *Limiter) Statistics(ctx context.Context) (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.store.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := l.clock.Now()
	var s Stats
	for _, e := range entries {
		if e.Expired(now) {
			continue
		}
		s.Tracked++
		s.TotalAttempts += e.Attempts
		if e.Blocked {
			s.Blocked++
		}
	}
	if s.Tracked > 0 {
		s.MeanAttempts = float64(s.TotalAttempts) / float64(s.Tracked)
	}
	return s, nil
}

// penalty selects the progressive block duration for the given attempt
// count: violation index = attempts - MaxAttempts, clamped to the delay list.
func (l *Limiter) penalty(attempts int) time.Duration {
	idx := attempts - l.cfg.MaxAttempts
	if idx < 0 {
		idx = 0
	}
	if idx >= len(l.cfg.ProgressiveDelays) {
		idx = len(l.cfg.ProgressiveDelays) - 1
	}
	return l.cfg.ProgressiveDelays[idx]
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}

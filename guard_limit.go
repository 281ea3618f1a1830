package authguard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CheckLimit decides whether an authentication attempt for the identifier
// may proceed. Denials carry the remaining wait in the decision; no error is
// returned for throttling itself, only for store backend failures.
func (g *Guard) CheckLimit(ctx context.Context, identifier string) (LimitDecision, error) {
	if g.closed.Load() {
		return LimitDecision{}, ErrGuardClosed
	}

	d, err := g.limiter.Check(ctx, identifier)
	if err != nil {
		return LimitDecision{}, err
	}

	if d.Allowed {
		g.metrics.Inc(MetricLimitAllowed)
	} else {
		g.metrics.Inc(MetricLimitDenied)
		g.emitAudit("limit.denied", identifier, false, "")
	}
	return d, nil
}

// RecordAttempt reports an attempt outcome to the limiter. Success clears
// the identifier's state entirely; failure escalates it.
func (g *Guard) RecordAttempt(ctx context.Context, identifier string, success bool) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}

	newlyBlocked, err := g.limiter.RecordAttempt(ctx, identifier, success)
	if err != nil {
		return err
	}

	if success {
		g.metrics.Inc(MetricLimitReset)
	} else if newlyBlocked {
		g.metrics.Inc(MetricLimitBlocked)
		g.emitAudit("limit.blocked", identifier, false, "")
	}
	return nil
}

// ResetLimit unconditionally clears the identifier's limiter state. Safe
// no-op when untracked.
func (g *Guard) ResetLimit(ctx context.Context, identifier string) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if err := g.limiter.Reset(ctx, identifier); err != nil {
		return err
	}
	g.metrics.Inc(MetricLimitReset)
	return nil
}

// LimitStatus reports the identifier's current limit state. Interchangeable
// with CheckLimit aside from metrics attribution.
func (g *Guard) LimitStatus(ctx context.Context, identifier string) (LimitDecision, error) {
	if g.closed.Load() {
		return LimitDecision{}, ErrGuardClosed
	}
	return g.limiter.Status(ctx, identifier)
}

// BlockIdentifier forces the identifier into the blocked state for the given
// duration regardless of its attempt count. Administrative override.
func (g *Guard) BlockIdentifier(ctx context.Context, identifier string, d time.Duration) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if err := g.limiter.Block(ctx, identifier, d); err != nil {
		return err
	}
	g.metrics.Inc(MetricAdminBlock)
	g.emitAudit("limit.admin_blocked", identifier, false, "")
	return nil
}

// ShouldBypass reports whether the request category is exempt from
// throttling by policy. Pure predicate.
func (g *Guard) ShouldBypass(identifier, requestType string) bool {
	return g.limiter.ShouldBypass(identifier, requestType)
}

// CleanupExpired removes every expired limiter entry immediately, returning
// the eviction count. The sweeper calls the same operation periodically.
func (g *Guard) CleanupExpired(ctx context.Context) (int, error) {
	if g.closed.Load() {
		return 0, ErrGuardClosed
	}
	evicted, err := g.limiter.Cleanup(ctx)
	if err != nil {
		return evicted, err
	}
	g.metrics.Add(MetricSweepEvicted, uint64(evicted))
	return evicted, nil
}

// LimiterStatistics summarizes limiter occupancy.
func (g *Guard) LimiterStatistics(ctx context.Context) (LimitStatistics, error) {
	if g.closed.Load() {
		return LimitStatistics{}, ErrGuardClosed
	}
	return g.limiter.Statistics(ctx)
}

// Attempt runs the full admission flow around an external authentication
// operation: bypass policy, limit check, the operation itself, and outcome
// recording. Throttled attempts fail with ErrRateLimited without invoking
// authenticate; bypassed categories skip throttling and recording entirely.
func (g *Guard) Attempt(ctx context.Context, identifier, requestType string, authenticate func(context.Context) error) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}

	if g.ShouldBypass(identifier, requestType) {
		g.metrics.Inc(MetricLimitBypass)
		return authenticate(ctx)
	}

	d, err := g.CheckLimit(ctx, identifier)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: retry after %s", ErrRateLimited, d.RetryAfter)
	}

	authErr := authenticate(ctx)
	if recErr := g.RecordAttempt(ctx, identifier, authErr == nil); recErr != nil {
		g.logger.Warn("recording attempt outcome failed", zap.Error(recErr))
	}
	return authErr
}

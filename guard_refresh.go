package authguard

import (
	"context"
	"time"

	"github.com/ethanvx/authguard/token"
)

// Refresh runs one refresh sequence against the configured provider, or
// attaches to the sequence already in flight. Every concurrent caller
// receives the identical RefreshResult and exactly one provider call
// sequence runs.
func (g *Guard) Refresh(ctx context.Context) RefreshResult {
	if g.closed.Load() {
		return RefreshResult{Err: ErrGuardClosed}
	}
	if g.coordinator == nil {
		return RefreshResult{Err: ErrNilProvider}
	}
	return g.coordinator.Refresh(ctx)
}

// IsRefreshing reports whether a refresh sequence is currently in flight.
func (g *Guard) IsRefreshing() bool {
	return g.coordinator != nil && g.coordinator.IsRefreshing()
}

// ScheduleRefresh arms a proactive refresh ahead of the given expiry,
// replacing any previously armed timer. When the expiry is already inside
// the threshold+buffer window it emits EventRefreshNeeded instead of arming
// a timer; the caller decides whether to call Refresh immediately.
func (g *Guard) ScheduleRefresh(expiresAt time.Time) error {
	if g.closed.Load() {
		return ErrGuardClosed
	}
	if g.coordinator == nil {
		return ErrNilProvider
	}
	g.coordinator.ScheduleRefresh(expiresAt)
	return nil
}

// ScheduleRefreshFromToken reads the exp claim of a JWT access token and
// schedules a proactive refresh from it. The signature is not verified; the
// claim only drives scheduling.
func (g *Guard) ScheduleRefreshFromToken(raw string) error {
	expiresAt, err := token.Expiry(raw)
	if err != nil {
		return err
	}
	return g.ScheduleRefresh(expiresAt)
}

// ClearRefreshTimer cancels a pending proactive refresh, if any. A refresh
// already executing is unaffected.
func (g *Guard) ClearRefreshTimer() {
	if g.coordinator != nil {
		g.coordinator.ClearRefreshTimer()
	}
}

// AddEventListener subscribes fn to lifecycle events of the given type. The
// returned Subscription removes it again. A listener that panics is isolated
// from the other listeners and reported to the diagnostics logger.
func (g *Guard) AddEventListener(eventType string, fn func(Event)) Subscription {
	return g.bus.Subscribe(eventType, fn)
}

// RemoveEventListener drops a previously registered listener.
func (g *Guard) RemoveEventListener(sub Subscription) {
	g.bus.Unsubscribe(sub)
}

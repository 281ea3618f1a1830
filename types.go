package authguard

import (
	"github.com/ethanvx/authguard/internal/events"
	"github.com/ethanvx/authguard/internal/ratelimit"
	"github.com/ethanvx/authguard/internal/refresh"
)

// LimitDecision is the outcome of a limit check: whether the attempt is
// admitted, the remaining budget, and how long a denied caller must wait.
type LimitDecision = ratelimit.Decision

// LimitStatistics summarizes limiter occupancy: tracked identifiers, blocked
// identifiers, and the mean attempt count.
type LimitStatistics = ratelimit.Stats

// Session is the credential material returned by the identity provider.
// Tokens are opaque to authguard; only the expiry is interpreted.
type Session = refresh.Session

// RefreshResult is the final outcome of one refresh sequence. Concurrent
// callers attached to the same sequence observe the identical value.
type RefreshResult = refresh.Result

// RefreshProvider performs the actual credential exchange with the identity
// provider.
type RefreshProvider = refresh.Provider

// RefreshProviderFunc adapts a function to the RefreshProvider interface.
type RefreshProviderFunc = refresh.ProviderFunc

// Event is an immutable lifecycle notification emitted by the coordinator
// and guard.
type Event = events.Event

// Subscription identifies a registered event listener for removal.
type Subscription = events.Subscription

// Lifecycle event types observable through Guard.AddEventListener.
const (
	// EventRefreshStarted fires when a refresh sequence begins.
	EventRefreshStarted = refresh.EventRefreshStarted
	// EventRefreshSucceeded fires when a refresh sequence ends in success.
	EventRefreshSucceeded = refresh.EventRefreshSucceeded
	// EventRefreshFailed fires when a refresh sequence exhausts its retries
	// or hits a non-retryable failure.
	EventRefreshFailed = refresh.EventRefreshFailed
	// EventRefreshAttemptFailed fires after each failed provider call.
	EventRefreshAttemptFailed = refresh.EventAttemptFailed
	// EventRefreshNeeded fires when ScheduleRefresh finds the expiry already
	// inside the proactive window; no timer is armed.
	EventRefreshNeeded = refresh.EventRefreshNeeded
	// EventRefreshScheduled fires when a proactive refresh timer is armed.
	EventRefreshScheduled = refresh.EventScheduled
	// EventRefreshTimerCleared fires when a pending timer is actually
	// cancelled.
	EventRefreshTimerCleared = refresh.EventTimerCleared
)

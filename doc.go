// Package authguard provides the resilience primitives that protect a login
// flow under adversarial and unreliable conditions: an adaptive per-identifier
// rate limiter with progressive penalty escalation, and a single-flight
// token-refresh coordinator with bounded retries and proactive scheduling.
//
// The package is designed for concurrent server workloads: Guard methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Guard], [Builder], [Config],
// and value types (LimitDecision, RefreshResult, Event, etc.). All internal
// coordination — limiter state, sweep scheduling, single-flight refresh,
// event fan-out — lives under internal/ and is never exported directly.
//
// # What this package must NOT do
//
//   - Talk to an identity provider itself. Credential exchange is delegated
//     to the [RefreshProvider] supplied at build time.
//   - Persist limiter state beyond what the configured entry store offers.
//   - Produce human-readable error text; callers map structured outcomes to
//     user-facing messages themselves.
//
// # Performance contract
//
// CheckLimit and RecordAttempt are the hot path: with the default in-memory
// store they never block on I/O and never suspend. Refresh is allowed to
// sleep between retry attempts, but concurrent callers share the in-flight
// sequence rather than stacking provider calls.
package authguard

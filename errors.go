package authguard

import (
	"errors"

	"github.com/ethanvx/authguard/internal/ratelimit"
	"github.com/ethanvx/authguard/internal/refresh"
)

var (
	// ErrRateLimited is returned by Attempt when the identifier is over its
	// attempt budget or blocked.
	ErrRateLimited = errors.New("rate limited")
	// ErrGuardClosed is returned from operations on a closed Guard.
	ErrGuardClosed = errors.New("guard closed")
	// ErrNilProvider is returned by Build when refresh coordination is
	// requested without a RefreshProvider.
	ErrNilProvider = errors.New("nil refresh provider")
	// ErrStoreUnavailable indicates the limiter entry store backend is
	// unreachable.
	ErrStoreUnavailable = ratelimit.ErrStoreUnavailable

	// Refresh failure taxonomy, re-exported from the coordinator.

	// ErrNetwork marks transport-level provider failures. Retryable.
	ErrNetwork = refresh.ErrNetwork
	// ErrTokenExpired marks an expired credential. Retryable.
	ErrTokenExpired = refresh.ErrTokenExpired
	// ErrInvalidRefreshToken marks a permanently unusable credential.
	// Non-retryable.
	ErrInvalidRefreshToken = refresh.ErrInvalidRefreshToken
	// ErrAccountDisabled marks a disabled or suspended account. Non-retryable.
	ErrAccountDisabled = refresh.ErrAccountDisabled
	// ErrAccountNotFound marks an unknown account. Non-retryable.
	ErrAccountNotFound = refresh.ErrAccountNotFound
	// ErrRefreshFailed is the default bucket for unclassified provider
	// errors. Treated as retryable.
	ErrRefreshFailed = refresh.ErrRefreshFailed
)

// ClassifyRefreshError maps a provider error onto the refresh failure
// taxonomy. Already-classified errors pass through unchanged.
func ClassifyRefreshError(err error) error {
	return refresh.Classify(err)
}

// RetryableRefreshError reports whether a classified refresh error is worth
// another attempt.
func RetryableRefreshError(err error) bool {
	return refresh.Retryable(err)
}

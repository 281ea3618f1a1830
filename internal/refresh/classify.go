package refresh

import (
	"errors"
	"fmt"
	"strings"
)

// Refresh failure taxonomy. Network trouble and stale tokens are worth
// retrying; a rejected credential or a dead account is not.
var (
	// ErrNetwork marks transport-level provider failures. Retryable.
	ErrNetwork = errors.New("network error")
	// ErrTokenExpired marks an expired credential; a fresh refresh may still
	// succeed. Retryable.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidRefreshToken marks a permanently unusable credential.
	// Non-retryable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrAccountDisabled marks a disabled or suspended account. Non-retryable.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountNotFound marks an unknown account. Non-retryable.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRefreshFailed is the default bucket for unclassified provider
	// errors. Treated as retryable.
	ErrRefreshFailed = errors.New("token refresh failed")
)

var classified = []error{
	ErrNetwork,
	ErrTokenExpired,
	ErrInvalidRefreshToken,
	ErrAccountDisabled,
	ErrAccountNotFound,
	ErrRefreshFailed,
}

// substring patterns checked in order; first match wins. Non-retryable
// buckets come first so "invalid refresh token expired" maps to the
// credential error rather than the transient one.
var patterns = []struct {
	needle string
	target error
}{
	{"invalid refresh token", ErrInvalidRefreshToken},
	{"invalid_grant", ErrInvalidRefreshToken},
	{"token revoked", ErrInvalidRefreshToken},
	{"refresh token reuse", ErrInvalidRefreshToken},
	{"account disabled", ErrAccountDisabled},
	{"account suspended", ErrAccountDisabled},
	{"account locked", ErrAccountDisabled},
	{"account not found", ErrAccountNotFound},
	{"user not found", ErrAccountNotFound},
	{"no such user", ErrAccountNotFound},
	{"token expired", ErrTokenExpired},
	{"expired", ErrTokenExpired},
	{"network", ErrNetwork},
	{"connection", ErrNetwork},
	{"timeout", ErrNetwork},
	{"timed out", ErrNetwork},
	{"unreachable", ErrNetwork},
	{"dns", ErrNetwork},
	{"temporarily unavailable", ErrNetwork},
}

// Classify maps a provider error onto the refresh failure taxonomy by
// matching its message against known substrings. Already-classified errors
// pass through unchanged; unmatched errors land in ErrRefreshFailed.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range classified {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p.needle) {
			return fmt.Errorf("%w: %v", p.target, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
}

// Retryable reports whether a classified refresh error is worth another
// attempt.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrAccountNotFound):
		return false
	default:
		return true
	}
}

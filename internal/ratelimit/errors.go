package ratelimit

import "errors"

var (
	// ErrStoreUnavailable indicates the entry store backend is unreachable.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

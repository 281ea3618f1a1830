package refresh

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyTaxonomy(t *testing.T) {
	cases := []struct {
		name      string
		msg       string
		want      error
		retryable bool
	}{
		{"network connection", "connection refused", ErrNetwork, true},
		{"network timeout", "request timed out", ErrNetwork, true},
		{"network dns", "dns lookup failed", ErrNetwork, true},
		{"expired token", "token expired 5 minutes ago", ErrTokenExpired, true},
		{"bare expired", "session expired", ErrTokenExpired, true},
		{"invalid refresh token", "invalid refresh token", ErrInvalidRefreshToken, false},
		{"oauth invalid_grant", "server returned invalid_grant", ErrInvalidRefreshToken, false},
		{"revoked", "token revoked by administrator", ErrInvalidRefreshToken, false},
		{"disabled account", "account disabled", ErrAccountDisabled, false},
		{"suspended account", "account suspended pending review", ErrAccountDisabled, false},
		{"missing account", "user not found", ErrAccountNotFound, false},
		{"unclassified", "something odd happened", ErrRefreshFailed, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(errors.New(tc.msg))
			if !errors.Is(got, tc.want) {
				t.Fatalf("Classify(%q) = %v, want %v", tc.msg, got, tc.want)
			}
			if Retryable(got) != tc.retryable {
				t.Fatalf("Retryable(%v) = %v, want %v", got, !tc.retryable, tc.retryable)
			}
		})
	}
}

func TestClassifyNonRetryableWinsOverTransient(t *testing.T) {
	// A message matching both buckets must land in the credential error,
	// not the transient one.
	got := Classify(errors.New("invalid refresh token expired"))
	if !errors.Is(got, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", got)
	}
}

func TestClassifyPassThrough(t *testing.T) {
	wrapped := fmt.Errorf("%w: upstream said no", ErrAccountDisabled)
	if got := Classify(wrapped); got != wrapped {
		t.Fatalf("classified error was rewrapped: %v", got)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Fatalf("Classify(nil) = %v", got)
	}
	if Retryable(nil) {
		t.Fatal("nil must not be retryable")
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	got := Classify(errors.New("Account Disabled"))
	if !errors.Is(got, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", got)
	}
}

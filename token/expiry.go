// Package token inspects opaque access-token material for scheduling
// purposes. It deliberately does not verify signatures: the expiry claim is
// only used to decide when to refresh, never to authorize anything.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed indicates the token could not be parsed as a JWT.
	ErrMalformed = errors.New("malformed token")
	// ErrNoExpiry indicates the token carries no exp claim.
	ErrNoExpiry = errors.New("token has no expiry claim")
)

// Expiry extracts the exp claim from a JWT without verifying its signature.
func Expiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// TimeToExpiry returns how long until the token expires relative to now.
// Negative for already-expired tokens.
func TimeToExpiry(raw string, now time.Time) (time.Duration, error) {
	exp, err := Expiry(raw)
	if err != nil {
		return 0, err
	}
	return exp.Sub(now), nil
}

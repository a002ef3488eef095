package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenExpiry reads the exp claim without verifying the signature. The
// server remains the authority on validity; this only drives early refresh.
func TokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether token expires before now+window. Tokens that
// cannot be decoded are not treated as expiring; a 401 will settle it.
func ExpiresWithin(token string, now time.Time, window time.Duration) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return !exp.After(now.Add(window))
}

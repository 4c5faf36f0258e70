// Package token inspects access tokens on the client side. The client never
// verifies signatures (it holds no key); it only reads claims the auth
// service put there, e.g. to display or log token expiry.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is the subset of registered claims the TaskFlow auth service issues.
type Claims struct {
	UserID    int64     `json:"user_id"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"-"`
	IssuedAt  time.Time `json:"-"`
}

// Inspect parses raw without verifying its signature and returns its claims.
func Inspect(raw string) (*Claims, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "[token.Inspect] parse token")
	}

	out := &Claims{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if v, ok := claims["user_id"].(float64); ok {
		out.UserID = int64(v)
	}
	if v, ok := claims["token_type"].(string); ok {
		out.TokenType = v
	}
	return out, nil
}

// Expiry returns the token's expiration time, zero when the claim is absent.
func Expiry(raw string) (time.Time, error) {
	claims, err := Inspect(raw)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt, nil
}

// Expired reports whether raw has an exp claim in the past relative to now.
// Malformed tokens count as expired.
func Expired(raw string, now time.Time) bool {
	expiry, err := Expiry(raw)
	if err != nil {
		return true
	}
	return !expiry.IsZero() && expiry.Before(now)
}

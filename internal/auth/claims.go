package auth

import (
	"time"
)

// CookieClaims represents the claims stored in a session cookie.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type CookieClaims struct {
	SessionID string `json:"sid"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

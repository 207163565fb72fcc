// Package identity is a REST client for the hosted identity provider that owns
// user accounts and issues the ID tokens the forum API accepts.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is what the provider returns after a successful sign-in, sign-up,
// profile update or token refresh.
type Credentials struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is the identity provider surface the gateway depends on.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (*Credentials, error)
	Lookup(ctx context.Context, idToken string) (*Credentials, error)
}

// Claims are the ID token claims the gateway reads.
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// ParseClaims decodes an ID token without verifying its signature. The forum
// API verifies every token it receives; the gateway only needs the identity
// fields and the expiry.
func ParseClaims(idToken string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse ID token: %w", err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// fillFromToken completes c with the claims carried in its ID token.
func (c *Credentials) fillFromToken() {
	claims, err := ParseClaims(c.IDToken)
	if err != nil {
		return
	}
	if c.UID == "" {
		c.UID = claims.UserID
	}
	if c.Email == "" {
		c.Email = claims.Email
	}
	if c.DisplayName == "" {
		c.DisplayName = claims.Name
	}
	if c.PhotoURL == "" {
		c.PhotoURL = claims.Picture
	}
	if c.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
		c.ExpiresAt = claims.ExpiresAt.Time
	}
}

package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/talkboard/talkboard-web/internal/id"
)

const (
	tokenIssuer   = "talkboard-gateway"
	tokenAudience = "talkboard-browser"
)

// CookieCodec seals session IDs into PASETO v4.local tokens and opens them again.
type CookieCodec struct {
	symmetricKey paseto.V4SymmetricKey
	now          func() time.Time
}

// NewCookieCodec creates a codec for the given 32-byte key.
func NewCookieCodec(keyBytes []byte) (*CookieCodec, error) {
	if len(keyBytes) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(keyBytes))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &CookieCodec{symmetricKey: key, now: time.Now}, nil
}

// Seal creates an encrypted cookie value for sessionID that stops verifying at expiresAt.
func (c *CookieCodec) Seal(sessionID string, expiresAt time.Time) (string, error) {
	now := c.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)

	tokenID, err := id.Generate("ck")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("sid", sessionID)

	return token.V4Encrypt(c.symmetricKey, nil), nil
}

// Open decrypts and validates a cookie value.
// Returns an error if the token was not sealed with this key or has expired.
func (c *CookieCodec) Open(value string) (*CookieClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(c.now()))

	token, err := parser.ParseV4Local(c.symmetricKey, value, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid cookie: %w", err)
	}

	var claims CookieClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("invalid cookie: missing session ID")
	}

	return &claims, nil
}

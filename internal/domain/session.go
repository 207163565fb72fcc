package domain

import "time"

// Session is the authenticated identity held by the gateway for one browser or CLI.
// It is created on sign-in or registration and destroyed on sign-out, on a 401
// from the forum API, or when the identity token can no longer be refreshed.
type Session struct {
	ID             string    `json:"id"`
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	IDToken        string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
}

// IsExpired reports whether the session itself has ended.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenNeedsRefresh reports whether the identity token expires within skew of now.
func (s *Session) TokenNeedsRefresh(now time.Time, skew time.Duration) bool {
	return !now.Add(skew).Before(s.TokenExpiresAt)
}

// Profile returns the identity fields shown to the browser.
func (s *Session) Profile() Profile {
	return Profile{
		UID:         s.UID,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		PhotoURL:    s.PhotoURL,
	}
}

// Profile is the public part of a session.
type Profile struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

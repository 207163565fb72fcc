package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/identity"
)

// ErrNotSignedIn is returned by FileCredentials when no credentials are saved.
var ErrNotSignedIn = errors.Unauthorized("not signed in, run `talkctl login` first")

// FileCredentials is the CLI's session: identity credentials kept in a
// user-only JSON file instead of a cookie.
type FileCredentials struct {
	path     string
	provider identity.Provider
	skew     time.Duration
	clock    clock.Clock

	mu sync.Mutex
}

type storedCredentials struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewFileCredentials creates a credential file store at path.
func NewFileCredentials(path string, provider identity.Provider, skew time.Duration, clk clock.Clock) *FileCredentials {
	if clk == nil {
		clk = clock.New()
	}
	return &FileCredentials{path: path, provider: provider, skew: skew, clock: clk}
}

// Path returns the credential file location.
func (f *FileCredentials) Path() string {
	return f.path
}

// Save writes creds, replacing any previous file.
func (f *FileCredentials) Save(creds *identity.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(creds)
}

func (f *FileCredentials) save(creds *identity.Credentials) error {
	data, err := json.MarshalIndent(storedCredentials{
		UID:          creds.UID,
		Email:        creds.Email,
		DisplayName:  creds.DisplayName,
		PhotoURL:     creds.PhotoURL,
		IDToken:      creds.IDToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Load reads the saved credentials.
func (f *FileCredentials) Load() (*identity.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *FileCredentials) load() (*identity.Credentials, error) {
	//#nosec G304 -- Path comes from the CLI configuration
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, ErrNotSignedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var stored storedCredentials
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	if stored.IDToken == "" {
		return nil, ErrNotSignedIn
	}

	return &identity.Credentials{
		UID:          stored.UID,
		Email:        stored.Email,
		DisplayName:  stored.DisplayName,
		PhotoURL:     stored.PhotoURL,
		IDToken:      stored.IDToken,
		RefreshToken: stored.RefreshToken,
		ExpiresAt:    stored.ExpiresAt,
	}, nil
}

// Clear removes the credential file. A missing file is not an error.
func (f *FileCredentials) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Token is the credentials lookup for the forum API client.
func (f *FileCredentials) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.load()
	if err != nil {
		return "", err
	}
	if f.clock.Now().Add(f.skew).Before(creds.ExpiresAt) {
		return creds.IDToken, nil
	}

	fresh, err := f.provider.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if isRevoked(err) {
			os.Remove(f.path) //nolint:errcheck // Credentials are unusable either way
			return "", ErrNotSignedIn
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if fresh.Email == "" {
		fresh.Email = creds.Email
	}
	if err := f.save(fresh); err != nil {
		return "", err
	}
	return fresh.IDToken, nil
}

// HandleUnauthorized forgets the credentials after the forum API rejected them.
func (f *FileCredentials) HandleUnauthorized(context.Context) {
	f.Clear() //nolint:errcheck // Next command reports ErrNotSignedIn
}

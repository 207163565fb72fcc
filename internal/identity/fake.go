package identity

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/id"
)

// Fake is an in-memory Provider for tests and local runs without a provider project.
// Tokens are unsigned-looking HS256 JWTs carrying the same claims the real provider issues.
type Fake struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount // by email
	refresh   map[string]string       // refresh token -> email
	refreshes int

	TTL time.Duration
	Now func() time.Time
}

type fakeAccount struct {
	uid, email, password, name, photo string
}

// NewFake creates an empty fake provider issuing one-hour tokens.
func NewFake() *Fake {
	return &Fake{
		accounts: make(map[string]*fakeAccount),
		refresh:  make(map[string]string),
		TTL:      time.Hour,
		Now:      time.Now,
	}
}

func (f *Fake) issue(a *fakeAccount) *Credentials {
	exp := f.Now().Add(f.TTL)
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:  a.uid,
		Email:   a.email,
		Name:    a.name,
		Picture: a.photo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.uid,
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        id.MustGenerate("tok"),
		},
	}).SignedString([]byte("fake"))

	rt := id.MustGenerate("rt")
	f.refresh[rt] = a.email
	return &Credentials{
		UID:          a.uid,
		Email:        a.email,
		DisplayName:  a.name,
		PhotoURL:     a.photo,
		IDToken:      token,
		RefreshToken: rt,
		ExpiresAt:    exp,
	}
}

// SignUp implements Provider.
func (f *Fake) SignUp(_ context.Context, email, password string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return nil, errors.AlreadyExists("An account with this email already exists.")
	}
	a := &fakeAccount{uid: id.MustGenerate("uid"), email: email, password: password}
	f.accounts[email] = a
	return f.issue(a), nil
}

// SignIn implements Provider.
func (f *Fake) SignIn(_ context.Context, email, password string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[email]
	if !ok || a.password != password {
		return nil, errors.InvalidCredentials("Invalid email or password.")
	}
	return f.issue(a), nil
}

// UpdateProfile implements Provider.
func (f *Fake) UpdateProfile(_ context.Context, idToken, displayName, photoURL string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.accountFor(idToken)
	if err != nil {
		return nil, err
	}
	a.name = displayName
	if photoURL != "" {
		a.photo = photoURL
	}
	return f.issue(a), nil
}

// Refresh implements Provider.
func (f *Fake) Refresh(_ context.Context, refreshToken string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.refresh[refreshToken]
	if !ok {
		return nil, &errors.Error{Code: errors.CodeTokenExpired, Message: "Your session has expired. Please sign in again."}
	}
	delete(f.refresh, refreshToken)
	f.refreshes++
	return f.issue(f.accounts[email]), nil
}

// Lookup implements Provider.
func (f *Fake) Lookup(_ context.Context, idToken string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, err := f.accountFor(idToken)
	if err != nil {
		return nil, err
	}
	return &Credentials{UID: a.uid, Email: a.email, DisplayName: a.name, PhotoURL: a.photo, IDToken: idToken}, nil
}

// RefreshCount returns how many refreshes were served.
func (f *Fake) RefreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *Fake) accountFor(idToken string) (*fakeAccount, error) {
	claims, err := ParseClaims(idToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTokenExpired, "invalid ID token")
	}
	a, ok := f.accounts[claims.Email]
	if !ok {
		return nil, errors.NotFound("account not found")
	}
	return a, nil
}

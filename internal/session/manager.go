package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/talkboard/talkboard-web/internal/auth"
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/id"
	"github.com/talkboard/talkboard-web/internal/identity"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/store"
)

// refreshTimeout bounds a shared token refresh independently of any one request.
const refreshTimeout = 10 * time.Second

// touchInterval limits how often LastSeenAt is written back.
const touchInterval = time.Minute

// Config holds session lifecycle settings.
type Config struct {
	CookieName   string
	Duration     time.Duration
	RefreshSkew  time.Duration
	SecureCookie bool
}

// ClientInfo describes the browser or CLI that started a session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// Manager creates, resolves, refreshes and ends sessions.
type Manager struct {
	cfg      Config
	store    store.SessionStore
	provider identity.Provider
	codec    *auth.CookieCodec
	clock    clock.Clock
	logger   *slog.Logger

	refreshes singleflight.Group
}

// NewManager creates a session manager. A nil clock uses the wall clock.
func NewManager(
	cfg Config,
	sessions store.SessionStore,
	provider identity.Provider,
	codec *auth.CookieCodec,
	clk clock.Clock,
	logger *slog.Logger,
) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "talkboard_session"
	}
	return &Manager{
		cfg:      cfg,
		store:    sessions,
		provider: provider,
		codec:    codec,
		clock:    clk,
		logger:   logger,
	}
}

// Start persists a new session for creds and returns it with the cookie to set.
// The rest of the request runs as the new session.
func (m *Manager) Start(ctx context.Context, creds *identity.Credentials, client ClientInfo) (*domain.Session, *http.Cookie, error) {
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := m.clock.Now()
	sess := &domain.Session{
		ID:         sessionID,
		ExpiresAt:  now.Add(m.cfg.Duration),
		CreatedAt:  now,
		LastSeenAt: now,
		UserAgent:  client.UserAgent,
		IPAddress:  client.IPAddress,
	}
	applyCredentials(sess, creds)

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}

	value, err := m.codec.Seal(sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("seal session cookie: %w", err)
	}

	if h := holderFrom(ctx); h != nil {
		h.mu.Lock()
		h.state = State{Session: sess}
		h.signedOut = false
		h.mu.Unlock()
	}

	m.logger.Info("session started",
		slog.String("session_id", sess.ID),
		slog.String("email", sess.Email),
	)
	return sess, m.cookie(value, sess.ExpiresAt), nil
}

// Resolve turns the request's cookie into a State.
func (m *Manager) Resolve(r *http.Request) State {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return State{}
	}

	claims, err := m.codec.Open(c.Value)
	if err != nil {
		m.logger.Debug("rejected session cookie", slog.String("error", err.Error()))
		return State{}
	}

	return m.resolveID(r.Context(), claims.SessionID)
}

func (m *Manager) resolveID(ctx context.Context, sessionID string) State {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return State{Loading: true}
		}
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Error("failed to load session", slog.String("error", err.Error()))
		}
		return State{}
	}

	now := m.clock.Now()
	if sess.IsExpired(now) {
		m.end(ctx, sess.ID, "expired")
		return State{}
	}

	if sess.TokenNeedsRefresh(now, m.cfg.RefreshSkew) {
		refreshed, err := m.refresh(ctx, sess)
		switch {
		case err == nil:
			sess = refreshed
		case ctx.Err() != nil:
			return State{Loading: true}
		case isRevoked(err):
			m.end(ctx, sess.ID, "refresh rejected")
			return State{}
		case now.Before(sess.TokenExpiresAt):
			// Provider unreachable but the current token still works.
			m.logger.Warn("token refresh failed, using current token", slog.String("error", err.Error()))
		default:
			m.logger.Warn("token refresh failed", slog.String("error", err.Error()))
			return State{Loading: true}
		}
	}

	if now.Sub(sess.LastSeenAt) >= touchInterval {
		if err := m.store.TouchSession(ctx, sess.ID, now); err == nil {
			sess.LastSeenAt = now
		}
	}

	return State{Session: sess}
}

// refresh exchanges the session's refresh token. Concurrent refreshes of one
// session share a single provider call, and the call is not abandoned when the
// request that started it goes away.
func (m *Manager) refresh(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	ch := m.refreshes.DoChan(sess.ID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		// Another caller may have rotated the token since this one loaded the row.
		current, err := m.store.GetSession(rctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if !current.TokenNeedsRefresh(m.clock.Now(), m.cfg.RefreshSkew) {
			return current, nil
		}

		creds, err := m.provider.Refresh(rctx, current.RefreshToken)
		if err != nil {
			return nil, err
		}
		applyCredentials(current, creds)
		if err := m.store.UpdateSession(rctx, current); err != nil {
			return nil, fmt.Errorf("save refreshed session: %w", err)
		}
		m.logger.Debug("identity token refreshed", slog.String("session_id", current.ID))
		return current, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cp := *res.Val.(*domain.Session)
		return &cp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Token is the credentials lookup for the forum API client. It returns the
// identity token of the request's session, refreshing it first if it is about
// to expire.
func (m *Manager) Token(ctx context.Context) (string, error) {
	h := holderFrom(ctx)
	if h == nil {
		return "", errors.Unauthorized("no session")
	}

	h.mu.Lock()
	sess := h.state.Session
	h.mu.Unlock()
	if sess == nil {
		return "", errors.Unauthorized("no session")
	}

	if !sess.TokenNeedsRefresh(m.clock.Now(), m.cfg.RefreshSkew) {
		return sess.IDToken, nil
	}

	refreshed, err := m.refresh(ctx, sess)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isRevoked(err) {
			m.HandleUnauthorized(ctx)
			return "", errors.Wrap(err, errors.CodeTokenExpired, "session expired")
		}
		return sess.IDToken, nil
	}

	h.mu.Lock()
	h.state.Session = refreshed
	h.mu.Unlock()
	return refreshed.IDToken, nil
}

// HandleUnauthorized ends the request's session after the forum API rejected
// its token. It is the client's 401 hook.
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	h := holderFrom(ctx)
	if h == nil {
		return
	}

	h.mu.Lock()
	sess := h.state.Session
	h.state = State{}
	h.signedOut = true
	h.mu.Unlock()

	if sess != nil {
		m.end(context.WithoutCancel(ctx), sess.ID, "rejected by forum API")
	}
}

// SignOut ends the request's session and returns the cookie that clears it.
func (m *Manager) SignOut(ctx context.Context) *http.Cookie {
	if h := holderFrom(ctx); h != nil {
		h.mu.Lock()
		sess := h.state.Session
		h.state = State{}
		h.signedOut = true
		h.mu.Unlock()

		if sess != nil {
			m.end(ctx, sess.ID, "signed out")
		}
	}
	return m.ClearCookie()
}

// SignOutEverywhere deletes every session of email.
func (m *Manager) SignOutEverywhere(ctx context.Context, email string) (int, error) {
	n, err := m.store.DeleteSessionsByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	m.logger.Info("signed out everywhere", slog.String("email", email), slog.Int("sessions", n))
	return n, nil
}

// UpdateProfile writes new display fields into the request's session.
func (m *Manager) UpdateProfile(ctx context.Context, creds *identity.Credentials) error {
	h := holderFrom(ctx)
	if h == nil {
		return errors.Unauthorized("no session")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Session == nil {
		return errors.Unauthorized("no session")
	}

	updated := *h.state.Session
	applyCredentials(&updated, creds)
	if err := m.store.UpdateSession(ctx, &updated); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	h.state.Session = &updated
	return nil
}

// ClearCookie returns a cookie that removes the session cookie from the browser.
func (m *Manager) ClearCookie() *http.Cookie {
	c := m.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Middleware resolves the session of every request and attaches the State.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := m.Resolve(r)
		ctx := WithState(r.Context(), st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RunJanitor deletes expired sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired(ctx)
		}
	}
}

// SweepExpired deletes sessions that have ended and returns how many were removed.
func (m *Manager) SweepExpired(ctx context.Context) int {
	n, err := m.store.DeleteExpiredSessions(ctx, m.clock.Now())
	if err != nil {
		m.logger.Error("failed to delete expired sessions", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		m.logger.Info("expired sessions deleted", slog.Int("count", n))
	}
	return n
}

func (m *Manager) end(ctx context.Context, sessionID, reason string) {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Error("failed to delete session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}
	m.logger.Info("session ended", slog.String("session_id", sessionID), slog.String("reason", reason))
}

func (m *Manager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func applyCredentials(sess *domain.Session, creds *identity.Credentials) {
	if creds.UID != "" {
		sess.UID = creds.UID
	}
	if creds.Email != "" {
		sess.Email = normalize.Email(creds.Email)
	}
	if creds.DisplayName != "" {
		sess.DisplayName = creds.DisplayName
	}
	if creds.PhotoURL != "" {
		sess.PhotoURL = creds.PhotoURL
	}
	if creds.IDToken != "" {
		sess.IDToken = creds.IDToken
	}
	if !creds.ExpiresAt.IsZero() {
		sess.TokenExpiresAt = creds.ExpiresAt
	}
	if creds.RefreshToken != "" {
		sess.RefreshToken = creds.RefreshToken
	}
}

// isRevoked reports whether the provider refused the refresh token for good.
func isRevoked(err error) bool {
	switch errors.CodeOf(err) {
	case errors.CodeTokenExpired, errors.CodeInvalidCredentials, errors.CodeUnauthorized:
		return true
	default:
		return false
	}
}

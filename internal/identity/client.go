package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/ratelimit"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRPS     = 5.0
	defaultBurst   = 10
)

// Config configures the identity client.
type Config struct {
	BaseURL  string // e.g. https://identitytoolkit.googleapis.com/v1
	TokenURL string // e.g. https://securetoken.googleapis.com/v1/token
	APIKey   string
}

// Client talks to the identity toolkit REST API.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

var _ Provider = (*Client)(nil)

// New creates an identity client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
		now:     time.Now,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r *accountResponse) credentials(now time.Time) *Credentials {
	creds := &Credentials{
		UID:          r.LocalID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		PhotoURL:     r.PhotoURL,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
	}
	if secs, err := strconv.Atoi(r.ExpiresIn); err == nil {
		creds.ExpiresAt = now.Add(time.Duration(secs) * time.Second)
	}
	creds.fillFromToken()
	return creds
}

// SignUp creates an email/password account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	var res accountResponse
	err := c.postJSON(ctx, c.accountsURL("signUp"), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.credentials(c.now()), nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	var res accountResponse
	err := c.postJSON(ctx, c.accountsURL("signInWithPassword"), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.credentials(c.now()), nil
}

// UpdateProfile sets the display name and photo of the account owning idToken.
// The returned credentials carry fresh tokens when the provider rotates them.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*Credentials, error) {
	body := map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}

	var res accountResponse
	if err := c.postJSON(ctx, c.accountsURL("update"), body, &res); err != nil {
		return nil, err
	}
	if res.IDToken == "" {
		res.IDToken = idToken
	}
	return res.credentials(c.now()), nil
}

// Lookup returns the account owning idToken.
func (c *Client) Lookup(ctx context.Context, idToken string) (*Credentials, error) {
	var res struct {
		Users []accountResponse `json:"users"`
	}
	if err := c.postJSON(ctx, c.accountsURL("lookup"), map[string]any{"idToken": idToken}, &res); err != nil {
		return nil, err
	}
	if len(res.Users) == 0 {
		return nil, errors.NotFound("account not found")
	}
	u := res.Users[0]
	u.IDToken = idToken
	return u.credentials(c.now()), nil
}

// Refresh exchanges a refresh token for a new ID token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	var res struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	target := c.cfg.TokenURL + "?key=" + url.QueryEscape(c.cfg.APIKey)
	if err := c.send(ctx, target, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &res); err != nil {
		return nil, err
	}

	ar := accountResponse{LocalID: res.UserID, IDToken: res.IDToken, RefreshToken: res.RefreshToken, ExpiresIn: res.ExpiresIn}
	return ar.credentials(c.now()), nil
}

func (c *Client) accountsURL(method string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/accounts:" + method + "?key=" + url.QueryEscape(c.cfg.APIKey)
}

func (c *Client) postJSON(ctx context.Context, target string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.send(ctx, target, "application/json", bytes.NewReader(payload), out)
}

func (c *Client) send(ctx context.Context, target, contentType string, body io.Reader, out any) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse identity URL: %w", err)
	}
	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Unavailable(err, "identity provider unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Unavailable(err, "read identity response")
	}

	c.logger.Debug("identity request", "path", u.Path, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return providerError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "decode identity response")
	}
	return nil
}

// providerError maps the provider's error codes to domain errors.
func providerError(status int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	// Codes may carry a suffix, e.g. "WEAK_PASSWORD : Password should be at least 6 characters".
	code, detail, _ := strings.Cut(payload.Error.Message, " : ")
	code = strings.TrimSpace(code)

	switch code {
	case "EMAIL_EXISTS":
		return errors.AlreadyExists("An account with this email already exists.")
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		return errors.InvalidCredentials("Invalid email or password.")
	case "WEAK_PASSWORD":
		if detail == "" {
			detail = "Password is too weak."
		}
		return errors.Validation(detail)
	case "TOKEN_EXPIRED", "INVALID_ID_TOKEN", "INVALID_REFRESH_TOKEN", "USER_DISABLED", "USER_NOT_FOUND", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return &errors.Error{Code: errors.CodeTokenExpired, Message: "Your session has expired. Please sign in again.", Status: status}
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return &errors.Error{Code: errors.CodeRateLimited, Message: "Too many attempts. Try again later.", Status: status}
	}
	return errors.FromStatus(status, payload.Error.Message)
}

// Package apiclient is the single adapter the gateway and the CLI use to talk to
// the remote forum API.
//
// Credentials are looked up through Options.Credentials on every request, just
// before dispatch, so one Client serves every session. A 401 response calls
// OnUnauthorized and a 403 calls OnForbidden, each once per response; every
// other failure is returned to the caller as an *errors.Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/ratelimit"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRPS     = 20.0
	defaultBurst   = 40

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 8 << 20

	// RequestIDHeader carries the correlation ID to the forum API.
	RequestIDHeader = "X-Request-ID"
)

// CredentialsFunc returns the bearer token of the current session.
type CredentialsFunc func(ctx context.Context) (string, error)

// HookFunc reacts to an authorization failure from the forum API.
type HookFunc func(ctx context.Context)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Credentials    CredentialsFunc
	OnUnauthorized HookFunc
	OnForbidden    HookFunc

	// Optional.
	HTTPClient *http.Client
	Limiter    *ratelimit.KeyedRateLimiter
	Logger     *slog.Logger
	UserAgent  string
}

// Client is a rate-limited client for the forum API.
type Client struct {
	base        *url.URL
	http        *http.Client
	limiter     *ratelimit.KeyedRateLimiter
	ownsLimiter bool
	logger      *slog.Logger
	userAgent   string

	credentials    CredentialsFunc
	onUnauthorized HookFunc
	onForbidden    HookFunc

	public bool
}

// New creates a client from opts.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	c := &Client{
		base:           base,
		http:           opts.HTTPClient,
		limiter:        opts.Limiter,
		logger:         opts.Logger,
		userAgent:      opts.UserAgent,
		credentials:    opts.Credentials,
		onUnauthorized: opts.OnUnauthorized,
		onForbidden:    opts.OnForbidden,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(defaultRPS, defaultBurst)
		c.ownsLimiter = true
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.userAgent == "" {
		c.userAgent = "Talkboard/1.0"
	}
	return c, nil
}

// Public returns a view of the client that never attaches credentials.
// It shares the transport and rate limiter with c.
func (c *Client) Public() *Client {
	p := *c
	p.public = true
	p.ownsLimiter = false
	return &p
}

// Close releases resources held by the client.
func (c *Client) Close() {
	if c.ownsLimiter {
		c.limiter.Stop()
	}
}

// BaseURL returns the configured forum API base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch issues a PATCH with an optional JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx, c.base.Host); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID(ctx))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// The token is read at dispatch time so a session switch is never served a stale credential.
	if !c.public && c.credentials != nil {
		token, err := c.credentials(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return errors.Unavailable(err, "forum API unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Unavailable(err, "read forum API response")
	}

	c.logger.Debug("forum api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, errors.CodeUnavailable, "decode forum API response")
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
	case resp.StatusCode == http.StatusForbidden:
		if c.onForbidden != nil {
			c.onForbidden(ctx)
		}
	}

	return errors.FromStatus(resp.StatusCode, serverMessage(data))
}

// serverMessage extracts the message the forum API put in an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// requestID reuses the inbound chi request ID so gateway and forum API logs correlate.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// seg escapes one path segment.
func seg(s string) string {
	return url.PathEscape(s)
}

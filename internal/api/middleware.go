package api

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyClient contextKey = "client_info"

// withClientInfo records the caller's user agent and address for new sessions.
// chi's RealIP has already resolved forwarded addresses into RemoteAddr.
func withClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := context.WithValue(r.Context(), contextKeyClient, session.ClientInfo{
			UserAgent: r.UserAgent(),
			IPAddress: ip,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientInfo(ctx context.Context) session.ClientInfo {
	info, _ := ctx.Value(contextKeyClient).(session.ClientInfo)
	return info
}

// cookieClearingWriter appends a cookie-clearing header to the first response
// written after the session was ended mid-request.
type cookieClearingWriter struct {
	http.ResponseWriter
	ctx      context.Context
	sessions *session.Manager
	written  bool
}

func (w *cookieClearingWriter) WriteHeader(status int) {
	if !w.written {
		w.written = true
		if session.SignedOut(w.ctx) && !w.hasClearCookie() {
			http.SetCookie(w.ResponseWriter, w.sessions.ClearCookie())
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *cookieClearingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cookieClearingWriter) hasClearCookie() bool {
	prefix := w.sessions.CookieName() + "=;"
	for _, c := range w.Header().Values("Set-Cookie") {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// Flush implements http.Flusher for the event stream.
func (w *cookieClearingWriter) Flush() {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Hijack implements http.Hijacker for the websocket upgrade.
func (w *cookieClearingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer for
// flushing and hijacking.
func (w *cookieClearingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// clearSignedOutCookie removes the session cookie from any response whose
// request lost its session, such as a forum API 401 seen mid-request.
// It must run inside the session middleware.
func clearSignedOutCookie(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cookieClearingWriter{ResponseWriter: w, ctx: r.Context(), sessions: sessions}, r)
		})
	}
}

// routeAccess enforces the routing table on /api/v1 operations before their
// handlers run. Public operations are not in the table and pass through.
func (s *Server) routeAccess(ctx huma.Context, next func(huma.Context)) {
	path := ctx.URL().Path
	if !s.deps.Routes.Allowed(domain.RoleAdmin, path) {
		next(ctx)
		return
	}

	st := session.FromContext(ctx.Context())
	switch {
	case st.Loading:
		ctx.SetHeader("Retry-After", "1")
		_ = huma.WriteErr(s.api, ctx, http.StatusServiceUnavailable, "Your session is still loading. Please try again.")
		return
	case !st.Authenticated():
		_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, "Please sign in to continue.")
		return
	}

	if s.deps.Routes.AdminOnly(path) {
		r := s.deps.Roles.Resolve(ctx.Context(), st)
		if r.Loading {
			ctx.SetHeader("Retry-After", "1")
			_ = huma.WriteErr(s.api, ctx, http.StatusServiceUnavailable, "Your role is still loading. Please try again.")
			return
		}
		if !r.IsAdmin {
			s.logger.Info("admin operation refused",
				slog.String("path", path),
				slog.String("email", st.Email()),
			)
			_ = huma.WriteErr(s.api, ctx, http.StatusForbidden, "Admin access required.")
			return
		}
	}

	next(ctx)
}

package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/session"
)

func signedIn(email string) session.State {
	return session.State{Session: &domain.Session{ID: "sess_1", Email: email}}
}

func TestDecide(t *testing.T) {
	admin := role.Result{Role: domain.RoleAdmin, IsAdmin: true}
	user := role.Result{Role: domain.RoleUser, IsUser: true}

	tests := []struct {
		name string
		st   session.State
		role role.Result
		req  Requirement
		want Decision
	}{
		{"session loading", session.State{Loading: true}, role.Result{}, AnySession, Loading},
		{"no session", session.State{}, role.Result{}, AnySession, RedirectSignIn},
		{"empty email", signedIn(""), role.Result{}, AnySession, RedirectSignIn},
		{"signed in", signedIn("ana@example.com"), role.Result{}, AnySession, Authorized},
		{"admin route no session", session.State{}, admin, Admin, RedirectSignIn},
		{"admin route loading session", session.State{Loading: true}, admin, Admin, Loading},
		{"admin route role loading", signedIn("ana@example.com"), role.Result{Loading: true}, Admin, Loading},
		{"admin route user", signedIn("ana@example.com"), user, Admin, RedirectForbidden},
		{"admin route unresolved role", signedIn("ana@example.com"), role.Result{}, Admin, RedirectForbidden},
		{"admin route admin", signedIn("admin@example.com"), admin, Admin, Authorized},
		{"unknown requirement", signedIn("admin@example.com"), admin, Requirement(9), RedirectForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.st, tt.role, tt.req), "got %s", Decide(tt.st, tt.role, tt.req))
		})
	}
}

type fetcher map[string]domain.Role

func (f fetcher) UserRole(_ context.Context, email string) (domain.Role, error) {
	return f[email], nil
}

func newTestGuards(t *testing.T) *Guards {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := query.New(query.Options{Logger: logger})
	t.Cleanup(func() { cache.Close() })
	roles := role.NewResolver(cache, fetcher{"admin@example.com": domain.RoleAdmin}, logger)
	return New(roles, logger)
}

func serve(h http.Handler, target string, st *session.State) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if st != nil {
		r = r.WithContext(session.WithState(r.Context(), *st))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireAdmin_UnauthenticatedRedirectsWithPath(t *testing.T) {
	g := newTestGuards(t)

	w := serve(g.RequireAdmin(okHandler), "/dashboard/makeAdmin?email=ana", nil)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/signin?from=%2Fdashboard%2FmakeAdmin%3Femail%3Dana", w.Header().Get("Location"))
}

func TestRequireAdmin_UserIsForbidden(t *testing.T) {
	g := newTestGuards(t)
	st := signedIn("ana@example.com")

	w := serve(g.RequireAdmin(okHandler), "/dashboard/reportComments", &st)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/forbidden?from=%2Fdashboard%2FreportComments", w.Header().Get("Location"))
}

func TestRequireAdmin_AdminPasses(t *testing.T) {
	g := newTestGuards(t)
	st := signedIn("admin@example.com")

	w := serve(g.RequireAdmin(okHandler), "/dashboard/reportComments", &st)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession(t *testing.T) {
	g := newTestGuards(t)

	loading := session.State{Loading: true}
	w := serve(g.RequireSession(okHandler), "/dashboard", &loading)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"state":"loading"`)

	st := signedIn("ana@example.com")
	w = serve(g.RequireSession(okHandler), "/dashboard", &st)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                           "/",
		"/dashboard/makeAdmin":       "/dashboard/makeAdmin",
		"/dashboard/makeAdmin?email": "/dashboard/makeAdmin?email",
		"//evil.example.com":         "/",
		"/\\evil.example.com":        "/",
		"https://evil.example.com/":  "/",
		"dashboard":                  "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, ReturnPath(in), "ReturnPath(%q)", in)
	}
}

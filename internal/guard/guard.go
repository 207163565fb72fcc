// Package guard gates page routes on the session and the role of the caller.
//
// Decide is the whole state machine: a request is loading until the session
// (and, for admin routes, the role) is resolved, then either authorized or
// redirected. Missing data never authorizes.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/talkboard/talkboard-web/internal/http/response"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/session"
)

// Paths the guards redirect to.
const (
	SignInPath    = "/signin"
	ForbiddenPath = "/forbidden"
)

// Requirement is what a route demands of the caller.
type Requirement int

const (
	// AnySession admits every signed-in user.
	AnySession Requirement = iota
	// Admin admits signed-in admins only.
	Admin
)

// Decision is the outcome of a guard.
type Decision int

const (
	Loading Decision = iota
	Authorized
	RedirectSignIn
	RedirectForbidden
)

func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Authorized:
		return "authorized"
	case RedirectSignIn:
		return "redirect-signin"
	case RedirectForbidden:
		return "redirect-forbidden"
	default:
		return "unknown"
	}
}

// Decide maps the session state and role result to a decision for req.
func Decide(st session.State, r role.Result, req Requirement) Decision {
	if st.Loading {
		return Loading
	}
	if st.Session == nil || st.Session.Email == "" {
		return RedirectSignIn
	}
	if req == AnySession {
		return Authorized
	}
	if req != Admin {
		return RedirectForbidden
	}
	if r.Loading {
		return Loading
	}
	if r.IsAdmin {
		return Authorized
	}
	return RedirectForbidden
}

// Guards holds the middleware for guarded page routes.
type Guards struct {
	roles  *role.Resolver
	logger *slog.Logger
}

// New creates the guard middleware set.
func New(roles *role.Resolver, logger *slog.Logger) *Guards {
	return &Guards{roles: roles, logger: logger}
}

// RequireSession admits requests that carry a session.
func (g *Guards) RequireSession(next http.Handler) http.Handler {
	return g.require(AnySession, next)
}

// RequireAdmin admits requests whose session belongs to an admin.
func (g *Guards) RequireAdmin(next http.Handler) http.Handler {
	return g.require(Admin, next)
}

func (g *Guards) require(req Requirement, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := session.FromContext(r.Context())

		var rr role.Result
		if req == Admin && st.Authenticated() {
			rr = g.roles.Resolve(r.Context(), st)
		}

		decision := Decide(st, rr, req)
		switch decision {
		case Authorized:
			next.ServeHTTP(w, r)
		case Loading:
			response.Loading(w, g.logger)
		case RedirectSignIn:
			response.Redirect(w, r, SignInURL(r))
		default:
			g.logger.Info("admin route refused",
				slog.String("path", r.URL.Path),
				slog.String("email", st.Email()),
			)
			response.Redirect(w, r, ForbiddenURL(r))
		}
	})
}

// SignInURL returns the sign-in location that returns to r's path and query afterwards.
func SignInURL(r *http.Request) string {
	return SignInPath + "?" + url.Values{"from": {r.URL.RequestURI()}}.Encode()
}

// ForbiddenURL returns the forbidden page location for r.
func ForbiddenURL(r *http.Request) string {
	return ForbiddenPath + "?" + url.Values{"from": {r.URL.Path}}.Encode()
}

// ReturnPath extracts a safe post-sign-in destination from a "from" value.
// Only local absolute paths are accepted; anything else returns "/".
func ReturnPath(from string) string {
	if from == "" || from[0] != '/' || (len(from) > 1 && (from[1] == '/' || from[1] == '\\')) {
		return "/"
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}

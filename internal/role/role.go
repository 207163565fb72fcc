// Package role resolves the authorization role of the signed-in user.
package role

import (
	"context"
	"log/slog"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/session"
)

// Fetcher looks up the role of an email. *apiclient.Client implements it.
type Fetcher interface {
	UserRole(ctx context.Context, email string) (domain.Role, error)
}

// Result is the outcome of a role resolution.
type Result struct {
	Role    domain.Role
	Loading bool
	IsAdmin bool
	IsUser  bool
	// Err is the lookup failure that caused the user default, if any.
	Err error
}

func resolved(r domain.Role, err error) Result {
	return Result{
		Role:    r,
		IsAdmin: r == domain.RoleAdmin,
		IsUser:  r == domain.RoleUser,
		Err:     err,
	}
}

// Key returns the cache key of the role of email.
func Key(email string) query.Key {
	return query.Key{"userRole", normalize.Email(email)}
}

// Resolver derives roles from the forum API through the query cache.
type Resolver struct {
	cache   *query.Client
	fetcher Fetcher
	logger  *slog.Logger
}

// NewResolver creates a role resolver.
func NewResolver(cache *query.Client, fetcher Fetcher, logger *slog.Logger) *Resolver {
	return &Resolver{cache: cache, fetcher: fetcher, logger: logger}
}

// Resolve returns the role of the session in st. No lookup is made while the
// session is loading or has no email; a failed lookup resolves to user.
func (r *Resolver) Resolve(ctx context.Context, st session.State) Result {
	if st.Loading {
		return Result{Loading: true}
	}
	email := normalize.Email(st.Email())
	if email == "" {
		return Result{}
	}

	role, err := query.Fetch(ctx, r.cache, Key(email), func(ctx context.Context) (domain.Role, error) {
		return r.fetcher.UserRole(ctx, email)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{Loading: true}
		}
		r.logger.Warn("role lookup failed, defaulting to user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return resolved(domain.RoleUser, err)
	}
	return resolved(domain.ParseRole(string(role)), nil)
}

// Refetch drops the cached role of email and resolves it again.
func (r *Resolver) Refetch(ctx context.Context, email string) Result {
	r.cache.Invalidate(Key(email))
	return r.Resolve(ctx, session.State{Session: &domain.Session{Email: email}})
}

// IsAdmin reports whether the request's session belongs to an admin.
func (r *Resolver) IsAdmin(ctx context.Context) bool {
	return r.Resolve(ctx, session.FromContext(ctx)).IsAdmin
}

// Require returns a forbidden error unless the request's session is an admin.
func (r *Resolver) Require(ctx context.Context) error {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return errors.Unauthorized("Please sign in to continue.")
	}
	if !r.Resolve(ctx, st).IsAdmin {
		return errors.Forbidden("Admin access required.")
	}
	return nil
}

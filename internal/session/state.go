// Package session owns the gateway side of authentication: it turns identity
// provider credentials into stored sessions, resolves the session cookie on every
// request, keeps identity tokens fresh and supplies them to the forum API client.
package session

import (
	"context"
	"sync"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// State is the outcome of resolving a request's session.
//
// Loading is true while resolution has not completed, for example when a token
// refresh was cut off by the request deadline. Consumers must not treat a loading
// state as signed out.
type State struct {
	Loading bool
	Session *domain.Session
}

// Authenticated reports whether resolution finished with a session.
func (s State) Authenticated() bool {
	return !s.Loading && s.Session != nil
}

// Email returns the session email, or "" when there is no session.
func (s State) Email() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Email
}

type contextKey string

const stateKey contextKey = "session_state"

// holder is the per-request view of the session. The 401 hook and token
// refreshes mutate it after the middleware has attached it.
type holder struct {
	mu        sync.Mutex
	state     State
	signedOut bool
}

// WithState attaches st to ctx.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateKey, &holder{state: st})
}

// FromContext returns the state attached to ctx. A context without one is signed out.
func FromContext(ctx context.Context) State {
	h, ok := ctx.Value(stateKey).(*holder)
	if !ok {
		return State{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Scope identifies the session whose credentials ctx carries. Requests without
// a session share the empty scope.
func Scope(ctx context.Context) string {
	st := FromContext(ctx)
	if st.Session == nil {
		return ""
	}
	return st.Session.ID
}

// SignedOut reports whether the session was ended while serving this request,
// so the response must clear the cookie.
func SignedOut(ctx context.Context) bool {
	h, ok := ctx.Value(stateKey).(*holder)
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signedOut
}

func holderFrom(ctx context.Context) *holder {
	h, _ := ctx.Value(stateKey).(*holder)
	return h
}

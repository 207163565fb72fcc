// Package store defines the gateway's local persistence: browser and CLI sessions.
// Forum data lives in the remote API and is never stored here.
package store

import (
	"context"
	"time"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
)

// Sentinel errors returned by store implementations.
var (
	ErrNotFound      = errors.NotFound("session not found")
	ErrAlreadyExists = errors.AlreadyExists("session already exists")
)

// SessionStore persists sessions. Implementations key rows by a hash of the
// session ID, so a leaked database cannot be replayed as cookies.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByEmail(ctx context.Context, email string) (int, error)
	ListSessions(ctx context.Context) ([]*domain.Session, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	Close() error
}

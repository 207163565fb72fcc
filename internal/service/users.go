package service

import (
	"context"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/query"
)

// UserDirectory looks up forum accounts through the query cache. It is the
// author source of the view enricher.
type UserDirectory struct {
	forum Forum
	cache *query.Client
}

// NewUserDirectory creates a user directory.
func NewUserDirectory(forum Forum, cache *query.Client) *UserDirectory {
	return &UserDirectory{forum: forum, cache: cache}
}

// UserByEmail returns the account registered under email.
func (d *UserDirectory) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return query.Fetch(ctx, d.cache, userKey(email), func(ctx context.Context) (*domain.User, error) {
		return d.forum.GetUser(ctx, email)
	})
}

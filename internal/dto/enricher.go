package dto

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader"
	"golang.org/x/sync/errgroup"

	"github.com/talkboard/talkboard-web/internal/color"
	"github.com/talkboard/talkboard-web/internal/domain"
)

const (
	batchWait        = time.Millisecond
	batchConcurrency = 4
)

// UserSource looks up forum accounts by email.
type UserSource interface {
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type contextKey string

const loaderKey contextKey = "author_loader"

// Enricher denormalizes posts and comments for client consumption.
//
// Author lookups go through a per-request dataloader so a page that shows many
// posts by the same people asks for each author once. Missing or failing
// lookups fall back to the names stored on the record.
type Enricher struct {
	users  UserSource
	logger *slog.Logger
}

// NewEnricher creates a new enricher.
func NewEnricher(users UserSource, logger *slog.Logger) *Enricher {
	return &Enricher{users: users, logger: logger}
}

// Middleware attaches a fresh author loader to every request.
func (e *Enricher) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), loaderKey, e.newLoader())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (e *Enricher) newLoader() *dataloader.Loader {
	return dataloader.NewBatchedLoader(e.batch, dataloader.WithWait(batchWait))
}

func (e *Enricher) loader(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(loaderKey).(*dataloader.Loader); ok {
		return l
	}
	return e.newLoader()
}

// batch resolves one batch of emails. The forum API has no bulk user lookup,
// so the batch fans out with bounded concurrency.
func (e *Enricher) batch(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, key := range keys {
		g.Go(func() error {
			user, err := e.users.UserByEmail(gctx, key.String())
			if err != nil {
				e.logger.Debug("author lookup failed", slog.String("email", key.String()), slog.String("error", err.Error()))
				results[i] = &dataloader.Result{Error: err}
				return nil
			}
			results[i] = &dataloader.Result{Data: user}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// authors loads every distinct email in one batch.
func (e *Enricher) authors(ctx context.Context, emails []string) map[string]*domain.User {
	seen := make(map[string]bool, len(emails))
	unique := make([]string, 0, len(emails))
	for _, email := range emails {
		if email != "" && !seen[email] {
			seen[email] = true
			unique = append(unique, email)
		}
	}
	if len(unique) == 0 {
		return nil
	}

	values, _ := e.loader(ctx).LoadMany(ctx, dataloader.NewKeysFromStrings(unique))()
	out := make(map[string]*domain.User, len(unique))
	for i, v := range values {
		if u, ok := v.(*domain.User); ok && u != nil {
			out[unique[i]] = u
		}
	}
	return out
}

// NewAuthor builds the display author from a stored name and image and the
// account, which may be nil.
func NewAuthor(email, name, image string, user *domain.User) Author {
	a := Author{Email: email, Name: name, Image: image, Badge: domain.BadgeBronze}
	if user != nil {
		if user.Name != "" {
			a.Name = user.Name
		}
		if user.Photo != "" {
			a.Image = user.Photo
		}
		if user.Badge != "" {
			a.Badge = user.Badge
		}
		a.Member = user.IsMember()
		if a.Member {
			a.Badge = domain.BadgeGold
		}
	}
	if a.Name == "" {
		a.Name, _, _ = strings.Cut(email, "@")
	}
	if a.Image == "" {
		a.AvatarColor = color.ForUser(email)
	}
	return a
}

// EnrichPosts denormalizes posts.
func (e *Enricher) EnrichPosts(ctx context.Context, posts []domain.Post) []Post {
	emails := make([]string, len(posts))
	for i := range posts {
		emails[i] = posts[i].AuthorEmail
	}
	users := e.authors(ctx, emails)

	out := make([]Post, len(posts))
	for i := range posts {
		p := &posts[i]
		out[i] = Post{
			Post:   p,
			Score:  p.Score(),
			Author: NewAuthor(p.AuthorEmail, p.AuthorName, p.AuthorImage, users[p.AuthorEmail]),
		}
	}
	return out
}

// EnrichPost denormalizes a single post.
func (e *Enricher) EnrichPost(ctx context.Context, post *domain.Post) Post {
	return e.EnrichPosts(ctx, []domain.Post{*post})[0]
}

// EnrichComments denormalizes comments.
func (e *Enricher) EnrichComments(ctx context.Context, comments []domain.Comment) []Comment {
	emails := make([]string, len(comments))
	for i := range comments {
		emails[i] = comments[i].UserEmail
	}
	users := e.authors(ctx, emails)

	out := make([]Comment, len(comments))
	for i := range comments {
		c := &comments[i]
		out[i] = Comment{
			Comment: c,
			Author:  NewAuthor(c.UserEmail, c.UserName, c.UserImage, users[c.UserEmail]),
		}
	}
	return out
}

package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/routes"
	"github.com/talkboard/talkboard-web/internal/session"
)

const recentPostsLimit = 3

// DashboardService serves the dashboard shell and the profile page.
type DashboardService struct {
	table    *routes.Table
	roles    *role.Resolver
	users    *UserDirectory
	posts    *PostService
	enricher *dto.Enricher
	logger   *slog.Logger
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(
	table *routes.Table,
	roles *role.Resolver,
	users *UserDirectory,
	posts *PostService,
	enricher *dto.Enricher,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		table:    table,
		roles:    roles,
		users:    users,
		posts:    posts,
		enricher: enricher,
		logger:   logger,
	}
}

// DashboardView is the dashboard shell: who is signed in and what they may open.
type DashboardView struct {
	Profile domain.Profile `json:"profile"`
	Role    domain.Role    `json:"role"`
	Nav     []routes.Route `json:"nav"`
	Home    string         `json:"home"`
}

// Dashboard returns the navigation of the request's session.
func (s *DashboardService) Dashboard(ctx context.Context) (*DashboardView, error) {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return nil, errors.Unauthorized("Please sign in to continue.")
	}

	r := s.roles.Resolve(ctx, st)
	if r.Loading {
		return nil, ctx.Err()
	}
	return &DashboardView{
		Profile: st.Session.Profile(),
		Role:    r.Role,
		Nav:     s.table.Visible(r.Role),
		Home:    s.table.Home(r.Role),
	}, nil
}

// ProfileView is the user profile page.
type ProfileView struct {
	Author      dto.Author     `json:"author"`
	Profile     domain.Profile `json:"profile"`
	RecentPosts []dto.Post     `json:"recent_posts"`
}

// Profile returns the account of the request's session with its latest posts.
func (s *DashboardService) Profile(ctx context.Context) (*ProfileView, error) {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return nil, errors.Unauthorized("Please sign in to continue.")
	}
	sess := st.Session

	var (
		user  *domain.User
		posts []domain.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.UserByEmail(gctx, sess.Email)
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.posts.userPosts(gctx, sess.Email, recentPostsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ProfileView{
		Author:      dto.NewAuthor(sess.Email, sess.DisplayName, sess.PhotoURL, user),
		Profile:     sess.Profile(),
		RecentPosts: s.enricher.EnrichPosts(ctx, posts),
	}, nil
}

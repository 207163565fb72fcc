package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/role"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/sse"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// AdminService holds the admin tools. Every method checks the admin role of
// the request's session itself, so it is safe behind any route.
type AdminService struct {
	forum      Forum
	cache      *query.Client
	roles      *role.Resolver
	content    *ContentService
	enricher   *dto.Enricher
	sseManager *sse.Manager
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewAdminService creates an admin service.
func NewAdminService(
	forum Forum,
	cache *query.Client,
	roles *role.Resolver,
	content *ContentService,
	enricher *dto.Enricher,
	sseManager *sse.Manager,
	validator *validation.Validator,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		forum:      forum,
		cache:      cache,
		roles:      roles,
		content:    content,
		enricher:   enricher,
		sseManager: sseManager,
		validator:  validator,
		logger:     logger,
	}
}

// ChartSlice is one slice of the admin profile chart.
type ChartSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AdminProfileView is the admin profile page.
type AdminProfileView struct {
	Profile *domain.AdminProfile `json:"profile"`
	Stats   *domain.SiteStats    `json:"stats"`
	Chart   []ChartSlice         `json:"chart"`
}

// Profile returns the admin's activity and the site totals.
func (s *AdminService) Profile(ctx context.Context) (*AdminProfileView, error) {
	if err := s.roles.Require(ctx); err != nil {
		return nil, err
	}
	email := session.FromContext(ctx).Email()

	view := &AdminProfileView{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		view.Profile, err = query.Fetch(gctx, s.cache, adminProfileKey(email), func(ctx context.Context) (*domain.AdminProfile, error) {
			return s.forum.AdminProfile(ctx, email)
		})
		return err
	})
	g.Go(func() error {
		var err error
		view.Stats, err = query.Fetch(gctx, s.cache, keySiteStats, func(ctx context.Context) (*domain.SiteStats, error) {
			return s.forum.SiteStats(ctx)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Chart = []ChartSlice{
		{Name: "Posts", Value: view.Stats.TotalPosts},
		{Name: "Comments", Value: view.Stats.TotalComments},
		{Name: "Users", Value: view.Stats.TotalUsers},
	}
	return view, nil
}

// SearchUsers finds accounts by email. An empty query is not sent and returns
// no users.
func (s *AdminService) SearchUsers(ctx context.Context, q string) ([]domain.User, error) {
	if err := s.roles.Require(ctx); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}

	users, err := query.Fetch(ctx, s.cache, searchUsersKey(q), func(ctx context.Context) ([]domain.User, error) {
		return s.forum.SearchUsers(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.NotFoundf("No users found for %q.", q)
	}
	return users, nil
}

// SetRoleRequest is the input of SetRole.
type SetRoleRequest struct {
	UserID string      `json:"user_id" validate:"required,notblank"`
	Email  string      `json:"email" validate:"required,email"`
	Role   domain.Role `json:"role" validate:"required,oneof=user admin"`
}

// SetRole changes the role of an account. The user is told over the event
// stream so their navigation changes without a reload.
func (s *AdminService) SetRole(ctx context.Context, req SetRoleRequest) error {
	if err := s.roles.Require(ctx); err != nil {
		return err
	}
	req.Email = normalize.Email(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	if req.Email == normalize.Email(session.FromContext(ctx).Email()) && req.Role != domain.RoleAdmin {
		return errors.Validation("You cannot remove your own admin role.")
	}

	_, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{keySearchUsers, role.Key(req.Email), userKey(req.Email)},
		Dedupe:      "setRole:" + req.UserID + ":" + string(req.Role),
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.SetRole(ctx, req.UserID, req.Role)
	})
	if err != nil {
		return err
	}

	s.sseManager.Emit(sse.NewRoleChangedEvent(req.Email, string(req.Role)))
	s.logger.Info("role changed",
		"user_id", req.UserID,
		"email", req.Email,
		"role", req.Role,
		"by", session.FromContext(ctx).Email(),
	)
	return nil
}

// ReportedComments returns the moderation queue.
func (s *AdminService) ReportedComments(ctx context.Context) ([]dto.Comment, error) {
	if err := s.roles.Require(ctx); err != nil {
		return nil, err
	}
	comments, err := query.Fetch(ctx, s.cache, keyReportedComments, func(ctx context.Context) ([]domain.Comment, error) {
		return s.forum.ReportedComments(ctx)
	})
	if err != nil {
		return nil, err
	}
	return s.enricher.EnrichComments(ctx, comments), nil
}

// ApproveComment clears the report on a comment.
func (s *AdminService) ApproveComment(ctx context.Context, id string) error {
	return s.moderate(ctx, "approve", id, s.forum.ApproveComment)
}

// DeleteComment removes a reported comment.
func (s *AdminService) DeleteComment(ctx context.Context, id string) error {
	return s.moderate(ctx, "delete", id, s.forum.DeleteComment)
}

func (s *AdminService) moderate(ctx context.Context, action, id string, fn func(ctx context.Context, id string) error) error {
	if err := s.roles.Require(ctx); err != nil {
		return err
	}

	_, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{keyReportedComments, {"comments"}, keySiteStats, keyAdminProfile},
		Dedupe:      action + "Comment:" + id,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("comment moderated", "comment_id", id, "action", action, "by", session.FromContext(ctx).Email())
	return nil
}

// CreateAnnouncement publishes an announcement.
func (s *AdminService) CreateAnnouncement(ctx context.Context, req AnnouncementRequest) (*domain.Announcement, error) {
	if err := s.roles.Require(ctx); err != nil {
		return nil, err
	}
	return s.content.CreateAnnouncement(ctx, req)
}

// CreateTag adds a tag.
func (s *AdminService) CreateTag(ctx context.Context, req CreateTagRequest) (*domain.Tag, error) {
	if err := s.roles.Require(ctx); err != nil {
		return nil, err
	}
	return s.content.CreateTag(ctx, req)
}

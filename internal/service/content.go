package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/search"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/sse"
	"github.com/talkboard/talkboard-web/internal/util"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// ContentService manages the admin-curated content: tags and announcements.
// The tag index is rebuilt from every fresh tag list, so suggestions and the
// duplicate check see what the forum API last returned.
type ContentService struct {
	forum      Forum
	public     Forum
	cache      *query.Client
	index      *search.TagIndex
	sseManager *sse.Manager
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewContentService creates a content service.
func NewContentService(
	forum, public Forum,
	cache *query.Client,
	index *search.TagIndex,
	sseManager *sse.Manager,
	validator *validation.Validator,
	logger *slog.Logger,
) *ContentService {
	return &ContentService{
		forum:      forum,
		public:     public,
		cache:      cache,
		index:      index,
		sseManager: sseManager,
		validator:  validator,
		logger:     logger,
	}
}

// Tags returns every tag.
func (s *ContentService) Tags(ctx context.Context) ([]domain.Tag, error) {
	return query.Fetch(ctx, s.cache, keyTags, func(ctx context.Context) ([]domain.Tag, error) {
		tags, err := s.public.Tags(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.index.Replace(tags); err != nil {
			s.logger.Warn("failed to rebuild tag index", "error", err)
		}
		return tags, nil
	})
}

// Announcements returns the site announcements.
func (s *ContentService) Announcements(ctx context.Context) ([]domain.Announcement, error) {
	return query.Fetch(ctx, s.cache, keyAnnouncements, func(ctx context.Context) ([]domain.Announcement, error) {
		return s.public.Announcements(ctx)
	})
}

// SuggestTags returns the tags matching a partial name.
func (s *ContentService) SuggestTags(ctx context.Context, text string, limit int) ([]search.TagHit, error) {
	if _, err := s.Tags(ctx); err != nil {
		return nil, err
	}
	return s.index.Suggest(ctx, text, limit)
}

// HasTag reports whether a tag with the same slug as name exists.
func (s *ContentService) HasTag(ctx context.Context, name string) (bool, error) {
	slug := util.NormalizeTagSlug(name)
	if slug == "" {
		return false, nil
	}
	if _, err := s.Tags(ctx); err != nil {
		return false, err
	}
	return s.index.HasSlug(ctx, slug)
}

// CreateTagRequest is the input of CreateTag.
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,notblank,max=40"`
}

// CreateTag adds a tag. Names that normalize to an existing slug are rejected
// before the forum API is called.
func (s *ContentService) CreateTag(ctx context.Context, req CreateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := normalize.Title(req.Name)
	slug := util.NormalizeTagSlug(name)
	if slug == "" {
		return nil, errors.Validation("Tag name must contain letters or numbers.")
	}

	exists, err := s.HasTag(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict(fmt.Sprintf("Tag %q already exists.", name))
	}

	tag, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{keyTags},
		Dedupe:      "addTag:" + slug,
	}, func(ctx context.Context) (*domain.Tag, error) {
		return s.forum.CreateTag(ctx, name)
	})
	if err != nil {
		return nil, err
	}

	if err := s.index.Add(*tag); err != nil {
		s.logger.Warn("failed to index new tag", "tag", tag.Name, "error", err)
	}
	s.logger.Info("tag created", "tag", tag.Name, "slug", slug)
	return tag, nil
}

// AnnouncementRequest is the input of CreateAnnouncement.
type AnnouncementRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"required,notblank"`
}

// CreateAnnouncement publishes an announcement signed by the request's session.
func (s *ContentService) CreateAnnouncement(ctx context.Context, req AnnouncementRequest) (*domain.Announcement, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return nil, errors.Unauthorized("Please sign in to continue.")
	}

	a := &domain.Announcement{
		AuthorName:  st.Session.DisplayName,
		AuthorImage: st.Session.PhotoURL,
		Title:       normalize.Title(req.Title),
		Description: normalize.Content(req.Description),
		CreatedAt:   time.Now(),
	}

	_, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{keyAnnouncements},
		Dedupe:      "addAnnouncement:" + st.Email() + ":" + a.Title,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.CreateAnnouncement(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	s.sseManager.Emit(sse.NewAnnouncementCreatedEvent(a.ID, a.Title, a.AuthorName))
	s.logger.Info("announcement created", "title", a.Title, "author", st.Email())
	return a, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// MembershipPath is where free accounts are sent to upgrade.
const MembershipPath = "/membership"

// PostService serves the post pages and post actions.
type PostService struct {
	forum     Forum
	public    Forum
	cache     *query.Client
	content   *ContentService
	users     *UserDirectory
	enricher  *dto.Enricher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPostService creates a post service.
func NewPostService(
	forum, public Forum,
	cache *query.Client,
	content *ContentService,
	users *UserDirectory,
	enricher *dto.Enricher,
	validator *validation.Validator,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		forum:     forum,
		public:    public,
		cache:     cache,
		content:   content,
		users:     users,
		enricher:  enricher,
		validator: validator,
		logger:    logger,
	}
}

// HomeView is the public posts page.
type HomeView struct {
	Posts         []dto.Post            `json:"posts"`
	Sort          domain.PostSort       `json:"sort"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	Tags          []domain.Tag          `json:"tags"`
	Announcements []domain.Announcement `json:"announcements"`
}

// Home returns one page of posts with the tag list and the announcements.
// Only a failure to load the posts fails the page.
func (s *PostService) Home(ctx context.Context, sort string, page int) (*HomeView, error) {
	view := &HomeView{
		Sort:     domain.ParsePostSort(sort),
		Page:     max(page, 1),
		PageSize: domain.PostsPageSize,
	}

	var posts []domain.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = query.Fetch(gctx, s.cache, postsPageKey(view.Sort, view.Page), func(ctx context.Context) ([]domain.Post, error) {
			return s.public.ListPosts(ctx, apiclient.ListPostsParams{Sort: view.Sort, Page: view.Page, Limit: view.PageSize})
		})
		return err
	})
	g.Go(func() error {
		tags, err := s.content.Tags(gctx)
		if err != nil {
			s.logger.Warn("home: tags unavailable", "error", err)
		}
		view.Tags = tags
		return nil
	})
	g.Go(func() error {
		announcements, err := s.content.Announcements(gctx)
		if err != nil {
			s.logger.Warn("home: announcements unavailable", "error", err)
		}
		view.Announcements = announcements
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Posts = s.enricher.EnrichPosts(ctx, posts)
	return view, nil
}

// PostView is the post details page.
type PostView struct {
	Post     dto.Post      `json:"post"`
	Comments []dto.Comment `json:"comments"`
	// ShareURL is the absolute link to the post page, filled in by the page handler.
	ShareURL string `json:"share_url,omitempty"`
}

// Post returns a post with its comments.
func (s *PostService) Post(ctx context.Context, id string) (*PostView, error) {
	var (
		post     *domain.Post
		comments []domain.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.getPost(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = query.Fetch(gctx, s.cache, commentsKey(id), func(ctx context.Context) ([]domain.Comment, error) {
			return s.public.Comments(ctx, id)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PostView{
		Post:     s.enricher.EnrichPost(ctx, post),
		Comments: s.enricher.EnrichComments(ctx, comments),
	}, nil
}

func (s *PostService) getPost(ctx context.Context, id string) (*domain.Post, error) {
	return query.Fetch(ctx, s.cache, postKey(id), func(ctx context.Context) (*domain.Post, error) {
		return s.public.GetPost(ctx, id)
	})
}

// TagView is the posts of one tag.
type TagView struct {
	Tag   string     `json:"tag"`
	Posts []dto.Post `json:"posts"`
}

// ByTag returns the posts carrying tag.
func (s *PostService) ByTag(ctx context.Context, tag string) (*TagView, error) {
	tag = strings.TrimSpace(tag)
	posts, err := query.Fetch(ctx, s.cache, postsByTagKey(tag), func(ctx context.Context) ([]domain.Post, error) {
		return s.public.PostsByTag(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	return &TagView{Tag: tag, Posts: s.enricher.EnrichPosts(ctx, posts)}, nil
}

// Search runs a committed tag search from the search bar.
func (s *PostService) Search(ctx context.Context, tag string) ([]dto.Post, error) {
	tag = strings.TrimSpace(tag)
	posts, err := query.Fetch(ctx, s.cache, searchPostsKey(tag), func(ctx context.Context) ([]domain.Post, error) {
		return s.public.SearchPosts(ctx, tag)
	})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, errors.NotFoundf("No posts found for %q.", tag)
	}
	return s.enricher.EnrichPosts(ctx, posts), nil
}

// UpgradePrompt replaces the post form once a free account is at its limit.
type UpgradePrompt struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Path    string `json:"path"`
}

// AddPostView is the state of the add post form.
type AddPostView struct {
	Count   int            `json:"count"`
	Limit   int            `json:"limit"`
	Member  bool           `json:"member"`
	CanPost bool           `json:"can_post"`
	Upgrade *UpgradePrompt `json:"upgrade,omitempty"`
	Tags    []domain.Tag   `json:"tags"`
}

// AddPost returns the add post form, or the upgrade prompt for a free account
// that has used up its posts.
func (s *PostService) AddPost(ctx context.Context) (*AddPostView, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}

	view := &AddPostView{Limit: domain.FreePostLimit}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := query.Fetch(gctx, s.cache, postCountKey(email), func(ctx context.Context) (int, error) {
			return s.forum.CountPosts(ctx, email)
		})
		view.Count = count
		return err
	})
	g.Go(func() error {
		user, err := s.users.UserByEmail(gctx, email)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil
			}
			return err
		}
		view.Member = user.IsMember()
		return nil
	})
	g.Go(func() error {
		tags, err := s.content.Tags(gctx)
		view.Tags = tags
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.CanPost = view.Member || view.Count < view.Limit
	if !view.CanPost {
		view.Upgrade = &UpgradePrompt{
			Message: errors.PostLimitReached(view.Limit).Message,
			Action:  "Become a Member",
			Path:    MembershipPath,
		}
	}
	return view, nil
}

// CreatePostRequest is the input of CreatePost.
type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Content string `json:"content" validate:"required,notblank"`
	Tag     string `json:"tag"`
}

// CreatePost publishes a post as the request's session. A free account at its
// post limit is refused before anything is sent to the forum API.
func (s *PostService) CreatePost(ctx context.Context, req CreatePostRequest) (string, error) {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return "", errors.Unauthorized("Please sign in to continue.")
	}
	if strings.TrimSpace(req.Tag) == "" {
		return "", errors.ValidationWithDetails("Please select a tag for the post.", map[string]string{"tag": "is required"})
	}
	if err := s.validator.Validate(req); err != nil {
		return "", err
	}

	tag := strings.TrimSpace(req.Tag)
	known, err := s.content.HasTag(ctx, tag)
	if err != nil {
		return "", err
	}
	if !known {
		return "", errors.ValidationWithDetails(fmt.Sprintf("Unknown tag %q.", tag), map[string]string{"tag": "must be an existing tag"})
	}

	form, err := s.AddPost(ctx)
	if err != nil {
		return "", err
	}
	if !form.CanPost {
		return "", errors.PostLimitReached(form.Limit).WithDetails(map[string]string{"redirect": MembershipPath})
	}

	sess := st.Session
	post := &domain.Post{
		Title:       normalize.Title(req.Title),
		Content:     normalize.Content(req.Content),
		AuthorID:    sess.UID,
		AuthorEmail: sess.Email,
		AuthorName:  sess.DisplayName,
		AuthorImage: sess.PhotoURL,
		Tags:        []string{tag},
		CreatedAt:   time.Now(),
	}

	id, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{
			userPostsKey(sess.Email),
			postCountKey(sess.Email),
			keyPosts,
			postsByTagKey(tag),
			keySiteStats,
			keyAdminProfile,
		},
		Dedupe: "addPost:" + sess.Email + ":" + post.Title,
	}, func(ctx context.Context) (string, error) {
		return s.forum.CreatePost(ctx, post)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("post created", "post_id", id, "email", sess.Email, "tag", tag)
	return id, nil
}

// MyPosts returns the posts of the request's session.
func (s *PostService) MyPosts(ctx context.Context) ([]dto.Post, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.userPosts(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	return s.enricher.EnrichPosts(ctx, posts), nil
}

func (s *PostService) userPosts(ctx context.Context, email string, limit int) ([]domain.Post, error) {
	key := userPostsKey(email)
	if limit > 0 {
		key = append(key, fmt.Sprint(limit))
	}
	return query.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]domain.Post, error) {
		return s.forum.UserPosts(ctx, email, limit)
	})
}

// DeletePost deletes a post owned by the request's session.
func (s *PostService) DeletePost(ctx context.Context, id string) error {
	email, err := requireEmail(ctx)
	if err != nil {
		return err
	}

	post, err := s.getPost(ctx, id)
	if err != nil {
		return err
	}
	if !strings.EqualFold(post.AuthorEmail, email) {
		return errors.Forbidden("You can only delete your own posts.")
	}

	_, err = query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{
			userPostsKey(email),
			postCountKey(email),
			postKey(id),
			commentsKey(id),
			keyPosts,
			keyPostsByTag,
			keySearchPosts,
			keySiteStats,
			keyAdminProfile,
		},
		Dedupe: "deletePost:" + email + ":" + id,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.DeletePost(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("post deleted", "post_id", id, "email", email)
	return nil
}

// Vote casts an up or down vote on a post.
func (s *PostService) Vote(ctx context.Context, id string, vote domain.VoteType) error {
	email, err := requireEmail(ctx)
	if err != nil {
		return err
	}
	if !vote.Valid() {
		return errors.Validationf("Unknown vote %q.", vote)
	}

	_, err = query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{postKey(id), keyPosts, keyPostsByTag, keySearchPosts},
		Dedupe:      "vote:" + email + ":" + id + ":" + string(vote),
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.Vote(ctx, id, vote)
	})
	return err
}

// requireEmail returns the email of the request's session.
func requireEmail(ctx context.Context) (string, error) {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return "", errors.Unauthorized("Please sign in to continue.")
	}
	return st.Email(), nil
}

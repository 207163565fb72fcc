package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/normalize"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/sse"
	"github.com/talkboard/talkboard-web/internal/validation"
)

// CommentService handles comments on posts and their reports.
type CommentService struct {
	forum      Forum
	posts      *PostService
	cache      *query.Client
	enricher   *dto.Enricher
	sseManager *sse.Manager
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewCommentService creates a comment service.
func NewCommentService(
	forum Forum,
	posts *PostService,
	cache *query.Client,
	enricher *dto.Enricher,
	sseManager *sse.Manager,
	validator *validation.Validator,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		forum:      forum,
		posts:      posts,
		cache:      cache,
		enricher:   enricher,
		sseManager: sseManager,
		validator:  validator,
		logger:     logger,
	}
}

// AddCommentRequest is the input of AddComment.
type AddCommentRequest struct {
	Text string `json:"comment_text" validate:"required,notblank,max=2000"`
}

// AddComment comments on a post as the request's session.
func (s *CommentService) AddComment(ctx context.Context, postID string, req AddCommentRequest) (string, error) {
	st := session.FromContext(ctx)
	if !st.Authenticated() {
		return "", errors.Unauthorized("Please sign in to continue.")
	}
	if err := s.validator.Validate(req); err != nil {
		return "", err
	}

	post, err := s.posts.getPost(ctx, postID)
	if err != nil {
		return "", err
	}

	sess := st.Session
	comment := &domain.Comment{
		PostID:      post.ID,
		PostTitle:   post.Title,
		UserID:      sess.UID,
		UserEmail:   sess.Email,
		UserName:    sess.DisplayName,
		UserImage:   sess.PhotoURL,
		CommentText: normalize.Content(req.Text),
		CreatedAt:   time.Now(),
	}
	if comment.PostID == "" {
		comment.PostID = postID
	}

	id, err := query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{commentsKey(postID), postKey(postID), keyPosts, keySiteStats, keyAdminProfile},
		Dedupe:      "addComment:" + sess.Email + ":" + postID + ":" + comment.CommentText,
	}, func(ctx context.Context) (string, error) {
		return s.forum.AddComment(ctx, comment)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("comment added", "comment_id", id, "post_id", postID, "email", sess.Email)
	return id, nil
}

// PostCommentsView is the comment moderation page of a post owner.
type PostCommentsView struct {
	Post     dto.Post              `json:"post"`
	Comments []dto.Comment         `json:"comments"`
	Reasons  []domain.ReportReason `json:"reasons"`
}

// PostComments returns the comments on a post owned by the request's session.
func (s *CommentService) PostComments(ctx context.Context, postID string) (*PostCommentsView, error) {
	email, err := requireEmail(ctx)
	if err != nil {
		return nil, err
	}

	var (
		post     *domain.Post
		comments []domain.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		post, err = s.posts.getPost(gctx, postID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = query.Fetch(gctx, s.cache, commentsKey(postID), func(ctx context.Context) ([]domain.Comment, error) {
			return s.forum.Comments(ctx, postID)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !strings.EqualFold(post.AuthorEmail, email) {
		return nil, errors.Forbidden("You can only moderate comments on your own posts.")
	}
	return &PostCommentsView{
		Post:     s.enricher.EnrichPost(ctx, post),
		Comments: s.enricher.EnrichComments(ctx, comments),
		Reasons:  domain.ReportReasons,
	}, nil
}

// ReportRequest is the input of Report.
type ReportRequest struct {
	Reason domain.ReportReason `json:"reason"`
	PostID string              `json:"post_id,omitempty"`
}

// Report flags a comment for admin review.
func (s *CommentService) Report(ctx context.Context, id string, req ReportRequest) error {
	email, err := requireEmail(ctx)
	if err != nil {
		return err
	}
	if !req.Reason.Valid() {
		return errors.ValidationWithDetails("Please select a feedback reason.", map[string]any{"reasons": domain.ReportReasons})
	}

	comments := query.Key{"comments"}
	if req.PostID != "" {
		comments = commentsKey(req.PostID)
	}

	_, err = query.Mutate(ctx, s.cache, query.Mutation{
		Invalidates: []query.Key{keyReportedComments, comments},
		Dedupe:      "report:" + email + ":" + id,
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.forum.ReportComment(ctx, id, req.Reason)
	})
	if err != nil {
		return err
	}

	s.sseManager.Emit(sse.NewCommentReportedEvent(id, req.PostID, string(req.Reason)))
	s.logger.Info("comment reported", "comment_id", id, "reason", req.Reason, "email", email)
	return nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/service"
)

func (s *Server) registerPostRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createPost",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts",
		Summary:       "Create post",
		Description:   "Publishes a post as the signed-in user. Free accounts are limited to a fixed number of posts.",
		Tags:          []string{"Posts"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"session": {}}},
	}, s.handleCreatePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePost",
		Method:      http.MethodDelete,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Delete post",
		Description: "Deletes one of the signed-in user's posts",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleDeletePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "votePost",
		Method:      http.MethodPost,
		Path:        "/api/v1/posts/{id}/vote",
		Summary:     "Vote on post",
		Description: "Records an up or down vote on a post",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleVote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{id}/comments",
		Summary:       "Comment on post",
		Description:   "Adds a comment to a post as the signed-in user",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"session": {}}},
	}, s.handleAddComment)
}

// CreatePostBody is the request body for creating a post.
type CreatePostBody struct {
	Title   string `json:"title,omitempty" doc:"Post title"`
	Content string `json:"content,omitempty" doc:"Post content, HTML or Markdown"`
	Tag     string `json:"tag,omitempty" doc:"Tag name"`
}

// CreatePostInput wraps the create post request for Huma.
type CreatePostInput struct {
	Body CreatePostBody
}

// CreatedResponse names a created resource.
type CreatedResponse struct {
	ID       string `json:"id" doc:"ID of the created resource"`
	Redirect string `json:"redirect,omitempty" doc:"Where the browser should go next"`
}

// CreatedOutput wraps CreatedResponse for Huma.
type CreatedOutput struct {
	Body CreatedResponse
}

func (s *Server) handleCreatePost(ctx context.Context, input *CreatePostInput) (*CreatedOutput, error) {
	id, err := s.services.Posts.CreatePost(ctx, service.CreatePostRequest{
		Title:   input.Body.Title,
		Content: input.Body.Content,
		Tag:     input.Body.Tag,
	})
	if err != nil {
		return nil, err
	}
	return &CreatedOutput{Body: CreatedResponse{ID: id, Redirect: "/dashboard/myPost"}}, nil
}

// PostIDInput identifies a post.
type PostIDInput struct {
	ID string `path:"id" doc:"Post ID"`
}

// OKResponse acknowledges an operation without a result.
type OKResponse struct {
	OK bool `json:"ok" doc:"Always true"`
}

// OKOutput wraps OKResponse for Huma.
type OKOutput struct {
	Body OKResponse
}

func ok() *OKOutput {
	return &OKOutput{Body: OKResponse{OK: true}}
}

func (s *Server) handleDeletePost(ctx context.Context, input *PostIDInput) (*OKOutput, error) {
	if err := s.services.Posts.DeletePost(ctx, input.ID); err != nil {
		return nil, err
	}
	return ok(), nil
}

// VoteInput is a vote on a post.
type VoteInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body struct {
		Vote domain.VoteType `json:"vote,omitempty" doc:"Vote direction: up or down"`
	}
}

func (s *Server) handleVote(ctx context.Context, input *VoteInput) (*OKOutput, error) {
	if err := s.services.Posts.Vote(ctx, input.ID, input.Body.Vote); err != nil {
		return nil, err
	}
	return ok(), nil
}

// AddCommentInput is a comment on a post.
type AddCommentInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body struct {
		Text string `json:"comment_text,omitempty" doc:"Comment text"`
	}
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CreatedOutput, error) {
	id, err := s.services.Comments.AddComment(ctx, input.ID, service.AddCommentRequest{Text: input.Body.Text})
	if err != nil {
		return nil, err
	}
	return &CreatedOutput{Body: CreatedResponse{ID: id}}, nil
}

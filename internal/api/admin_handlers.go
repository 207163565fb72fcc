package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/dto"
	"github.com/talkboard/talkboard-web/internal/service"
)

var adminSecurity = []map[string][]string{{"session": {}}}

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users",
		Summary:     "Search users",
		Description: "Finds accounts by name or email. An empty query returns no users.",
		Tags:        []string{"Admin"},
		Security:    adminSecurity,
	}, s.handleSearchUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "setUserRole",
		Method:      http.MethodPatch,
		Path:        "/api/v1/admin/users/{id}/role",
		Summary:     "Set user role",
		Description: "Promotes or demotes an account",
		Tags:        []string{"Admin"},
		Security:    adminSecurity,
	}, s.handleSetRole)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReportedComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/comments/reported",
		Summary:     "List reported comments",
		Tags:        []string{"Admin"},
		Security:    adminSecurity,
	}, s.handleReportedComments)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/comments/{id}/approve",
		Summary:     "Approve reported comment",
		Description: "Clears the reports on a comment and keeps it",
		Tags:        []string{"Admin"},
		Security:    adminSecurity,
	}, s.handleApproveComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/comments/{id}",
		Summary:     "Delete reported comment",
		Tags:        []string{"Admin"},
		Security:    adminSecurity,
	}, s.handleDeleteComment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAnnouncement",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/announcements",
		Summary:       "Create announcement",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Security:      adminSecurity,
	}, s.handleCreateAnnouncement)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/tags",
		Summary:       "Create tag",
		Description:   "Adds a tag. Names that differ only in case or accents from an existing tag are rejected.",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusCreated,
		Security:      adminSecurity,
	}, s.handleCreateTag)
}

// SearchUsersInput is a user search.
type SearchUsersInput struct {
	Query string `query:"q" doc:"Name or email fragment"`
}

// SearchUsersOutput lists matching users.
type SearchUsersOutput struct {
	Body struct {
		Users []domain.User `json:"users" doc:"Matching users"`
	}
}

func (s *Server) handleSearchUsers(ctx context.Context, input *SearchUsersInput) (*SearchUsersOutput, error) {
	users, err := s.services.Admin.SearchUsers(ctx, input.Query)
	if err != nil {
		return nil, err
	}
	out := &SearchUsersOutput{}
	out.Body.Users = users
	if out.Body.Users == nil {
		out.Body.Users = []domain.User{}
	}
	return out, nil
}

// SetRoleInput changes the role of a user.
type SetRoleInput struct {
	ID   string `path:"id" doc:"User ID"`
	Body struct {
		Email string      `json:"email,omitempty" doc:"User email"`
		Role  domain.Role `json:"role,omitempty" doc:"New role: user or admin"`
	}
}

func (s *Server) handleSetRole(ctx context.Context, input *SetRoleInput) (*OKOutput, error) {
	err := s.services.Admin.SetRole(ctx, service.SetRoleRequest{
		UserID: input.ID,
		Email:  input.Body.Email,
		Role:   input.Body.Role,
	})
	if err != nil {
		return nil, err
	}
	return ok(), nil
}

// CommentsOutput lists comments.
type CommentsOutput struct {
	Body struct {
		Comments []dto.Comment `json:"comments" doc:"Comments"`
	}
}

func (s *Server) handleReportedComments(ctx context.Context, _ *struct{}) (*CommentsOutput, error) {
	comments, err := s.services.Admin.ReportedComments(ctx)
	if err != nil {
		return nil, err
	}
	out := &CommentsOutput{}
	out.Body.Comments = comments
	if out.Body.Comments == nil {
		out.Body.Comments = []dto.Comment{}
	}
	return out, nil
}

// CommentIDInput identifies a comment.
type CommentIDInput struct {
	ID string `path:"id" doc:"Comment ID"`
}

func (s *Server) handleApproveComment(ctx context.Context, input *CommentIDInput) (*OKOutput, error) {
	if err := s.services.Admin.ApproveComment(ctx, input.ID); err != nil {
		return nil, err
	}
	return ok(), nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *CommentIDInput) (*OKOutput, error) {
	if err := s.services.Admin.DeleteComment(ctx, input.ID); err != nil {
		return nil, err
	}
	return ok(), nil
}

// AnnouncementInput is a new announcement.
type AnnouncementInput struct {
	Body struct {
		Title       string `json:"title,omitempty" doc:"Announcement title"`
		Description string `json:"description,omitempty" doc:"Announcement body, HTML or Markdown"`
	}
}

// AnnouncementOutput is a created announcement.
type AnnouncementOutput struct {
	Body *domain.Announcement
}

func (s *Server) handleCreateAnnouncement(ctx context.Context, input *AnnouncementInput) (*AnnouncementOutput, error) {
	a, err := s.services.Admin.CreateAnnouncement(ctx, service.AnnouncementRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &AnnouncementOutput{Body: a}, nil
}

// CreateTagInput is a new tag.
type CreateTagInput struct {
	Body struct {
		Name string `json:"name,omitempty" doc:"Tag name"`
	}
}

// TagOutput is a created tag.
type TagOutput struct {
	Body *domain.Tag
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.services.Admin.CreateTag(ctx, service.CreateTagRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: tag}, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/service"
)

func (s *Server) registerCommentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "reportComment",
		Method:      http.MethodPost,
		Path:        "/api/v1/comments/{id}/report",
		Summary:     "Report comment",
		Description: "Flags a comment on one of the signed-in user's posts for admin review",
		Tags:        []string{"Comments"},
		Security:    []map[string][]string{{"session": {}}},
	}, s.handleReportComment)
}

// ReportCommentInput is a report of a comment.
type ReportCommentInput struct {
	ID   string `path:"id" doc:"Comment ID"`
	Body struct {
		Reason domain.ReportReason `json:"reason,omitempty" doc:"Feedback reason"`
		PostID string              `json:"post_id,omitempty" doc:"Post the comment belongs to"`
	}
}

func (s *Server) handleReportComment(ctx context.Context, input *ReportCommentInput) (*OKOutput, error) {
	err := s.services.Comments.Report(ctx, input.ID, service.ReportRequest{
		Reason: input.Body.Reason,
		PostID: input.Body.PostID,
	})
	if err != nil {
		return nil, err
	}
	return ok(), nil
}

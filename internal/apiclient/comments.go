package apiclient

import (
	"context"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// Comments returns the comments on a post.
func (c *Client) Comments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := c.Get(ctx, "/comments/"+seg(postID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment posts a comment and returns its ID.
func (c *Client) AddComment(ctx context.Context, comment *domain.Comment) (string, error) {
	var res insertResult
	if err := c.Post(ctx, "/comments", comment, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

// ReportComment flags a comment with one of the fixed feedback reasons.
func (c *Client) ReportComment(ctx context.Context, id string, reason domain.ReportReason) error {
	return c.Patch(ctx, "/comments/report/"+seg(id), map[string]domain.ReportReason{"feedback": reason}, nil)
}

// ReportedComments returns the moderation queue.
func (c *Client) ReportedComments(ctx context.Context) ([]domain.Comment, error) {
	var comments []domain.Comment
	if err := c.Get(ctx, "/admin/reported-comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ApproveComment clears the reported flag.
func (c *Client) ApproveComment(ctx context.Context, id string) error {
	return c.Patch(ctx, "/admin/comments/"+seg(id)+"/approve", nil, nil)
}

// DeleteComment removes a reported comment.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.Delete(ctx, "/admin/comments/"+seg(id), nil)
}

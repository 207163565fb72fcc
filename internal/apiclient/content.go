package apiclient

import (
	"context"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// Announcements returns every announcement, newest first as served.
func (c *Client) Announcements(ctx context.Context) ([]domain.Announcement, error) {
	var items []domain.Announcement
	if err := c.Get(ctx, "/announcements", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateAnnouncement publishes an announcement.
func (c *Client) CreateAnnouncement(ctx context.Context, a *domain.Announcement) error {
	return c.Post(ctx, "/announcements", a, nil)
}

// Tags returns every tag.
func (c *Client) Tags(ctx context.Context) ([]domain.Tag, error) {
	var tags []domain.Tag
	if err := c.Get(ctx, "/tags", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag adds a tag. The forum API answers 409 for a duplicate name.
func (c *Client) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := c.Post(ctx, "/tags", map[string]string{"name": name}, &tag); err != nil {
		return nil, err
	}
	if tag.Name == "" {
		tag.Name = name
	}
	return &tag, nil
}

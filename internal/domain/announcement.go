package domain

import "time"

// Announcement is a site-wide notice posted by an admin.
type Announcement struct {
	ID          string    `json:"_id,omitempty"`
	AuthorName  string    `json:"authorName"`
	AuthorImage string    `json:"authorImage,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Package dto provides the view models page routes and the JSON API return.
//
// Views embed the forum API's records and add the denormalized display fields a
// page needs to render immediately: the author's current name and photo, an
// avatar color for authors without one, and derived scores.
package dto

import "github.com/talkboard/talkboard-web/internal/domain"

// Author is the display form of a forum account.
type Author struct {
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Image       string       `json:"image,omitempty"`
	AvatarColor string       `json:"avatar_color,omitempty"` // Set when Image is empty
	Badge       domain.Badge `json:"badge,omitempty"`
	Member      bool         `json:"member"`
}

// Post is the client-facing representation of a post.
type Post struct {
	*domain.Post
	Score  int    `json:"score"`
	Author Author `json:"author"`
}

// Comment is the client-facing representation of a comment.
type Comment struct {
	*domain.Comment
	Author Author `json:"author"`
}

package domain

import "time"

// Post is a forum post. Vote counts are owned by the forum API and only change
// through the vote endpoint.
type Post struct {
	ID           string    `json:"_id,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	AuthorID     string    `json:"authorId"`
	AuthorEmail  string    `json:"authorEmail"`
	AuthorName   string    `json:"authorName"`
	AuthorImage  string    `json:"authorImage,omitempty"`
	Tags         []string  `json:"tags"`
	UpVote       int       `json:"upVote"`
	DownVote     int       `json:"downVote"`
	CreatedAt    time.Time `json:"createdAt"`
	CommentCount int       `json:"commentCount"`
}

// Score is the popularity measure used for sorting.
func (p *Post) Score() int {
	return p.UpVote - p.DownVote
}

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is a known vote direction.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// PostSort orders the public post list.
type PostSort string

const (
	SortNewest  PostSort = "newest"
	SortPopular PostSort = "popular"
)

// ParsePostSort returns the sort for s, defaulting to newest.
func ParsePostSort(s string) PostSort {
	if PostSort(s) == SortPopular {
		return SortPopular
	}
	return SortNewest
}

// PostsPageSize is the page size of the public post list.
const PostsPageSize = 5

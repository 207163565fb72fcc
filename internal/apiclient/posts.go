package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// ListPostsParams selects a page of the public post list.
type ListPostsParams struct {
	Sort  domain.PostSort
	Page  int
	Limit int
}

type insertResult struct {
	InsertedID string `json:"insertedId"`
}

type countResult struct {
	Count int `json:"count"`
}

// ListPosts returns one page of posts.
func (c *Client) ListPosts(ctx context.Context, params ListPostsParams) ([]domain.Post, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = domain.PostsPageSize
	}
	if params.Sort == "" {
		params.Sort = domain.SortNewest
	}

	query := url.Values{}
	query.Set("sort", string(params.Sort))
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("limit", strconv.Itoa(params.Limit))

	var posts []domain.Post
	if err := c.Get(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UserPosts returns the posts authored by email. A limit of zero returns all of them.
func (c *Client) UserPosts(ctx context.Context, email string, limit int) ([]domain.Post, error) {
	query := url.Values{}
	query.Set("email", email)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var posts []domain.Post
	if err := c.Get(ctx, "/posts", query, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns a single post.
func (c *Client) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := c.Get(ctx, "/posts/"+seg(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost publishes a post and returns its ID.
func (c *Client) CreatePost(ctx context.Context, post *domain.Post) (string, error) {
	var res insertResult
	if err := c.Post(ctx, "/posts", post, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

// DeletePost removes a post owned by the caller.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.Delete(ctx, "/posts/"+seg(id), nil)
}

// Vote records an up or down vote on a post.
func (c *Client) Vote(ctx context.Context, id string, vote domain.VoteType) error {
	return c.Patch(ctx, "/posts/vote/"+seg(id), map[string]domain.VoteType{"type": vote}, nil)
}

// CountPosts returns how many posts email has authored.
func (c *Client) CountPosts(ctx context.Context, email string) (int, error) {
	var res countResult
	if err := c.Get(ctx, "/posts/count", url.Values{"email": {email}}, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// SearchPosts returns posts whose tags match the search term.
func (c *Client) SearchPosts(ctx context.Context, tag string) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.Get(ctx, "/posts-search/search", url.Values{"tag": {tag}}, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// PostsByTag returns every post carrying tag.
func (c *Client) PostsByTag(ctx context.Context, tag string) ([]domain.Post, error) {
	var posts []domain.Post
	if err := c.Get(ctx, "/posts-tag/tag/"+seg(tag), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

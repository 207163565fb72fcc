package apiclient

import (
	"context"
	"net/url"

	"github.com/talkboard/talkboard-web/internal/domain"
)

// GetUser returns the forum account for email.
func (c *Client) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := c.Get(ctx, "/users/"+seg(email), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers the forum account for a new identity.
func (c *Client) CreateUser(ctx context.Context, user *domain.User) error {
	return c.Post(ctx, "/users", user, nil)
}

// UserRole looks up the role of email. Unknown values are reported as user.
func (c *Client) UserRole(ctx context.Context, email string) (domain.Role, error) {
	var res struct {
		Role string `json:"role"`
	}
	if err := c.Get(ctx, "/users-role/"+seg(email)+"/role", nil, &res); err != nil {
		return domain.RoleUser, err
	}
	return domain.ParseRole(res.Role), nil
}

// SetRole changes the role of the account with the given ID.
func (c *Client) SetRole(ctx context.Context, userID string, role domain.Role) error {
	return c.Patch(ctx, "/users/"+seg(userID)+"/role", map[string]domain.Role{"role": role}, nil)
}

// SearchUsers returns accounts whose email matches q.
func (c *Client) SearchUsers(ctx context.Context, q string) ([]domain.User, error) {
	var users []domain.User
	if err := c.Get(ctx, "/users-search/search", url.Values{"email": {q}}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpgradeMembership marks email as a paying member.
func (c *Client) UpgradeMembership(ctx context.Context, email string) error {
	return c.Patch(ctx, "/users/membership/"+seg(email), nil, nil)
}

// AdminProfile returns the activity summary of an admin.
func (c *Client) AdminProfile(ctx context.Context, email string) (*domain.AdminProfile, error) {
	var profile domain.AdminProfile
	if err := c.Get(ctx, "/admin-profile/"+seg(email), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SiteStats returns site-wide totals.
func (c *Client) SiteStats(ctx context.Context) (*domain.SiteStats, error) {
	var stats domain.SiteStats
	if err := c.Get(ctx, "/site-stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

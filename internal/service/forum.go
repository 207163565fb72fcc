// Package service holds the page views and actions of the gateway. Every read
// goes through the query cache and every write through a query mutation, so the
// views a browser holds stay coherent with what it just did.
package service

import (
	"context"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
)

// Forum is the forum API surface the services use. *apiclient.Client implements it.
type Forum interface {
	ListPosts(ctx context.Context, params apiclient.ListPostsParams) ([]domain.Post, error)
	UserPosts(ctx context.Context, email string, limit int) ([]domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (string, error)
	DeletePost(ctx context.Context, id string) error
	Vote(ctx context.Context, id string, vote domain.VoteType) error
	CountPosts(ctx context.Context, email string) (int, error)
	SearchPosts(ctx context.Context, tag string) ([]domain.Post, error)
	PostsByTag(ctx context.Context, tag string) ([]domain.Post, error)

	Comments(ctx context.Context, postID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, comment *domain.Comment) (string, error)
	ReportComment(ctx context.Context, id string, reason domain.ReportReason) error
	ReportedComments(ctx context.Context) ([]domain.Comment, error)
	ApproveComment(ctx context.Context, id string) error
	DeleteComment(ctx context.Context, id string) error

	GetUser(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UserRole(ctx context.Context, email string) (domain.Role, error)
	SetRole(ctx context.Context, userID string, role domain.Role) error
	SearchUsers(ctx context.Context, q string) ([]domain.User, error)
	UpgradeMembership(ctx context.Context, email string) error
	AdminProfile(ctx context.Context, email string) (*domain.AdminProfile, error)
	SiteStats(ctx context.Context) (*domain.SiteStats, error)

	Announcements(ctx context.Context) ([]domain.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *domain.Announcement) error
	Tags(ctx context.Context) ([]domain.Tag, error)
	CreateTag(ctx context.Context, name string) (*domain.Tag, error)

	CreatePaymentIntent(ctx context.Context, email string) (*apiclient.PaymentIntent, error)
}

var _ Forum = (*apiclient.Client)(nil)

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/talkboard/talkboard-web/internal/apiclient"
	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
)

// fakeForum is an in-memory forum API.
type fakeForum struct {
	mu       sync.Mutex
	posts    []domain.Post
	comments []domain.Comment
	users    map[string]*domain.User
	tags     []domain.Tag
	notices  []domain.Announcement
	calls    map[string]int
	nextID   int
}

func newFakeForum() *fakeForum {
	return &fakeForum{
		users: make(map[string]*domain.User),
		tags:  []domain.Tag{{ID: "t1", Name: "Go"}, {ID: "t2", Name: "Databases"}},
		calls: make(map[string]int),
	}
}

func (f *fakeForum) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeForum) record(name string) {
	f.calls[name]++
}

func (f *fakeForum) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeForum) addUser(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	f.users[u.Email] = &u
}

func (f *fakeForum) addPosts(email string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for range n {
		f.posts = append(f.posts, domain.Post{ID: f.id("p"), Title: "post", AuthorEmail: email, Tags: []string{"Go"}})
	}
}

func (f *fakeForum) ListPosts(_ context.Context, params apiclient.ListPostsParams) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListPosts")
	start := (max(params.Page, 1) - 1) * params.Limit
	if start >= len(f.posts) {
		return []domain.Post{}, nil
	}
	end := min(start+params.Limit, len(f.posts))
	return append([]domain.Post(nil), f.posts[start:end]...), nil
}

func (f *fakeForum) UserPosts(_ context.Context, email string, limit int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UserPosts")
	var out []domain.Post
	for _, p := range f.posts {
		if p.AuthorEmail == email {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeForum) GetPost(_ context.Context, id string) (*domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetPost")
	for _, p := range f.posts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, errors.NotFound("post not found")
}

func (f *fakeForum) CreatePost(_ context.Context, post *domain.Post) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreatePost")
	p := *post
	p.ID = f.id("p")
	f.posts = append(f.posts, p)
	return p.ID, nil
}

func (f *fakeForum) DeletePost(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeletePost")
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("post not found")
}

func (f *fakeForum) Vote(_ context.Context, id string, vote domain.VoteType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Vote")
	for i := range f.posts {
		if f.posts[i].ID == id {
			if vote == domain.VoteUp {
				f.posts[i].UpVote++
			} else {
				f.posts[i].DownVote++
			}
			return nil
		}
	}
	return errors.NotFound("post not found")
}

func (f *fakeForum) CountPosts(_ context.Context, email string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CountPosts")
	n := 0
	for _, p := range f.posts {
		if p.AuthorEmail == email {
			n++
		}
	}
	return n, nil
}

func (f *fakeForum) SearchPosts(_ context.Context, tag string) ([]domain.Post, error) {
	return f.PostsByTag(context.Background(), tag)
}

func (f *fakeForum) PostsByTag(_ context.Context, tag string) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PostsByTag")
	var out []domain.Post
	for _, p := range f.posts {
		for _, t := range p.Tags {
			if strings.EqualFold(t, tag) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeForum) Comments(_ context.Context, postID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Comments")
	var out []domain.Comment
	for _, c := range f.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeForum) AddComment(_ context.Context, comment *domain.Comment) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddComment")
	c := *comment
	c.ID = f.id("c")
	f.comments = append(f.comments, c)
	return c.ID, nil
}

func (f *fakeForum) ReportComment(_ context.Context, id string, reason domain.ReportReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReportComment")
	for i := range f.comments {
		if f.comments[i].ID == id {
			f.comments[i].Reported = true
			f.comments[i].Feedback = string(reason)
			return nil
		}
	}
	return errors.NotFound("comment not found")
}

func (f *fakeForum) ReportedComments(_ context.Context) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReportedComments")
	var out []domain.Comment
	for _, c := range f.comments {
		if c.Reported {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeForum) ApproveComment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ApproveComment")
	for i := range f.comments {
		if f.comments[i].ID == id {
			f.comments[i].Reported = false
			return nil
		}
	}
	return errors.NotFound("comment not found")
}

func (f *fakeForum) DeleteComment(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteComment")
	for i, c := range f.comments {
		if c.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("comment not found")
}

func (f *fakeForum) GetUser(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetUser")
	u, ok := f.users[email]
	if !ok {
		return nil, errors.NotFound("user not found")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeForum) CreateUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateUser")
	if _, ok := f.users[user.Email]; ok {
		return errors.Conflict("user already exists")
	}
	u := *user
	u.ID = f.id("u")
	f.users[u.Email] = &u
	return nil
}

func (f *fakeForum) UserRole(_ context.Context, email string) (domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UserRole")
	if u, ok := f.users[email]; ok {
		return u.Role, nil
	}
	return domain.RoleUser, nil
}

func (f *fakeForum) SetRole(_ context.Context, userID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetRole")
	for _, u := range f.users {
		if u.ID == userID {
			u.Role = role
			return nil
		}
	}
	return errors.NotFound("user not found")
}

func (f *fakeForum) SearchUsers(_ context.Context, q string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchUsers")
	var out []domain.User
	for _, u := range f.users {
		if strings.Contains(u.Email, q) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeForum) UpgradeMembership(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpgradeMembership")
	u, ok := f.users[email]
	if !ok {
		return errors.NotFound("user not found")
	}
	u.Membership = domain.MembershipMember
	u.Badge = domain.BadgeGold
	return nil
}

func (f *fakeForum) AdminProfile(_ context.Context, email string) (*domain.AdminProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AdminProfile")
	return &domain.AdminProfile{Email: email, Posts: len(f.posts), Comments: len(f.comments), Users: len(f.users)}, nil
}

func (f *fakeForum) SiteStats(_ context.Context) (*domain.SiteStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SiteStats")
	return &domain.SiteStats{TotalPosts: len(f.posts), TotalComments: len(f.comments), TotalUsers: len(f.users)}, nil
}

func (f *fakeForum) Announcements(_ context.Context) ([]domain.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Announcements")
	return append([]domain.Announcement(nil), f.notices...), nil
}

func (f *fakeForum) CreateAnnouncement(_ context.Context, a *domain.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateAnnouncement")
	copied := *a
	copied.ID = f.id("a")
	f.notices = append(f.notices, copied)
	return nil
}

func (f *fakeForum) Tags(_ context.Context) ([]domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Tags")
	return append([]domain.Tag(nil), f.tags...), nil
}

func (f *fakeForum) CreateTag(_ context.Context, name string) (*domain.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTag")
	tag := domain.Tag{ID: f.id("t"), Name: name}
	f.tags = append(f.tags, tag)
	return &tag, nil
}

func (f *fakeForum) CreatePaymentIntent(_ context.Context, email string) (*apiclient.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreatePaymentIntent")
	return &apiclient.PaymentIntent{ClientSecret: "pi_" + f.id("") + "_secret_x"}, nil
}

var _ Forum = (*fakeForum)(nil)

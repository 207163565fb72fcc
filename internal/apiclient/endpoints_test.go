package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/domain"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func recordingClient(t *testing.T, status int, response any) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		writeJSON(w, status, response)
	}, Options{Credentials: func(context.Context) (string, error) { return "tok", nil }})
	return client, rec
}

func TestListPosts_DefaultsAndQuery(t *testing.T) {
	client, rec := recordingClient(t, http.StatusOK, []domain.Post{{ID: "p1", UpVote: 3}})

	posts, err := client.ListPosts(context.Background(), ListPostsParams{Sort: domain.SortPopular, Page: 2})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/posts", rec.path)
	assert.Equal(t, "limit=5&page=2&sort=popular", rec.query)
	require.Len(t, posts, 1)
	assert.Equal(t, 3, posts[0].Score())
}

func TestCreatePost_ReturnsInsertedID(t *testing.T) {
	client, rec := recordingClient(t, http.StatusOK, map[string]string{"insertedId": "p9"})

	id, err := client.CreatePost(context.Background(), &domain.Post{Title: "Hi", Tags: []string{"go"}})
	require.NoError(t, err)

	assert.Equal(t, "p9", id)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "Hi", rec.body["title"])
}

func TestVoteAndReport_Bodies(t *testing.T) {
	client, rec := recordingClient(t, http.StatusOK, map[string]bool{"ok": true})
	ctx := context.Background()

	require.NoError(t, client.Vote(ctx, "p1", domain.VoteDown))
	assert.Equal(t, http.MethodPatch, rec.method)
	assert.Equal(t, "/posts/vote/p1", rec.path)
	assert.Equal(t, "down", rec.body["type"])

	require.NoError(t, client.ReportComment(ctx, "c1", domain.ReasonSpam))
	assert.Equal(t, "/comments/report/c1", rec.path)
	assert.Equal(t, "Spam", rec.body["feedback"])
}

func TestUserRole_DefaultsUnknownToUser(t *testing.T) {
	client, rec := recordingClient(t, http.StatusOK, map[string]string{"role": "superuser"})

	role, err := client.UserRole(context.Background(), "ana@example.com")
	require.NoError(t, err)

	assert.Equal(t, "/users-role/ana@example.com/role", rec.path)
	assert.Equal(t, domain.RoleUser, role)
}

func TestAdminEndpoints_Paths(t *testing.T) {
	client, rec := recordingClient(t, http.StatusOK, map[string]any{})
	ctx := context.Background()

	require.NoError(t, client.ApproveComment(ctx, "c7"))
	assert.Equal(t, "/admin/comments/c7/approve", rec.path)

	require.NoError(t, client.DeleteComment(ctx, "c7"))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/admin/comments/c7", rec.path)

	require.NoError(t, client.SetRole(ctx, "u1", domain.RoleAdmin))
	assert.Equal(t, "/users/u1/role", rec.path)
	assert.Equal(t, "admin", rec.body["role"])

	require.NoError(t, client.UpgradeMembership(ctx, "ana@example.com"))
	assert.Equal(t, "/users/membership/ana@example.com", rec.path)
}

func TestPaymentIntent_ID(t *testing.T) {
	client, _ := recordingClient(t, http.StatusOK, map[string]string{"clientSecret": "pi_3Nx_secret_abc"})

	intent, err := client.CreatePaymentIntent(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pi_3Nx", intent.ID())
}

package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/domain"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := New()
	require.NoError(t, err)
	return table
}

func labels(routes []Route) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Label)
	}
	return out
}

func TestVisible(t *testing.T) {
	table := newTestTable(t)

	assert.Equal(t, []string{"My Profile", "Add Post", "My Posts"}, labels(table.Visible(domain.RoleUser)))
	assert.Equal(t,
		[]string{"Admin Profile", "Manage Users", "Make Announcement", "Reported Comments"},
		labels(table.Visible(domain.RoleAdmin)),
	)
	assert.Empty(t, table.Visible(domain.Role("guest")))
}

func TestAllowed(t *testing.T) {
	table := newTestTable(t)

	tests := []struct {
		role domain.Role
		path string
		want bool
	}{
		{domain.RoleUser, "/dashboard/profile", true},
		{domain.RoleUser, "/dashboard/comments/66b1f0", true},
		{domain.RoleUser, "/dashboard/makeAdmin", false},
		{domain.RoleUser, "/api/v1/admin/users", false},
		{domain.RoleAdmin, "/dashboard/makeAdmin", true},
		{domain.RoleAdmin, "/dashboard/myPost", true},
		{domain.RoleAdmin, "/api/v1/admin/comments/c1/approve", true},
		{domain.Role(""), "/dashboard/profile", false},
		{domain.RoleAdmin, "/unknown", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Allowed(tt.role, tt.path))
		})
	}
}

func TestAdminOnlyAndHome(t *testing.T) {
	table := newTestTable(t)

	assert.True(t, table.AdminOnly("/dashboard/reportComments"))
	assert.False(t, table.AdminOnly("/dashboard/addPost"))
	assert.Equal(t, "/dashboard/profile", table.Home(domain.RoleUser))
	assert.Equal(t, "/dashboard/adminProfile", table.Home(domain.RoleAdmin))
	assert.Equal(t, "/dashboard", table.Home(""))
}

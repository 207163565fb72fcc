package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"admin", RoleAdmin},
		{" Admin ", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"moderator", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.in))
		})
	}
}

func TestPost_Score(t *testing.T) {
	p := &Post{UpVote: 7, DownVote: 3}
	assert.Equal(t, 4, p.Score())

	p = &Post{UpVote: 1, DownVote: 4}
	assert.Equal(t, -3, p.Score())
}

func TestSession_TokenNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &Session{TokenExpiresAt: now.Add(5 * time.Minute), ExpiresAt: now.Add(time.Hour)}

	assert.False(t, s.TokenNeedsRefresh(now, 2*time.Minute))
	assert.True(t, s.TokenNeedsRefresh(now, 5*time.Minute))
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))
}

func TestUser_IsMember(t *testing.T) {
	u := NewUser("a@example.com", "Ana", "", time.Now())
	assert.False(t, u.IsMember())
	assert.Equal(t, RoleUser, u.Role)

	u.Membership = "Member"
	assert.True(t, u.IsMember())
}

func TestReportReason_Valid(t *testing.T) {
	assert.True(t, ReasonOffTopic.Valid())
	assert.False(t, ReportReason("Select Feedback").Valid())
	assert.False(t, ReportReason("").Valid())
}

func TestVoteTypeAndSort(t *testing.T) {
	assert.True(t, VoteUp.Valid())
	assert.False(t, VoteType("sideways").Valid())
	assert.Equal(t, SortPopular, ParsePostSort("popular"))
	assert.Equal(t, SortNewest, ParsePostSort("oldest"))
}

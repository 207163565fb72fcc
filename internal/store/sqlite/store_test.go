package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestSession(id, email string, now time.Time) *domain.Session {
	return &domain.Session{
		ID:             id,
		UID:            "uid-" + id,
		Email:          email,
		DisplayName:    "Ana",
		PhotoURL:       "https://img.example.com/ana.png",
		IDToken:        "id-token",
		RefreshToken:   "refresh-token",
		TokenExpiresAt: now.Add(time.Hour),
		ExpiresAt:      now.Add(24 * time.Hour),
		CreatedAt:      now,
		LastSeenAt:     now,
		UserAgent:      "Mozilla/5.0",
		IPAddress:      "203.0.113.7",
	}
}

func TestOpen_WALMode(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, s.CreateSession(ctx, makeTestSession("sess-1", "ana@example.com", now)))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, "ana@example.com", got.Email)
	assert.Equal(t, "refresh-token", got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(now.Add(24*time.Hour)))
	assert.Equal(t, "203.0.113.7", got.IPAddress)

	err = s.CreateSession(ctx, makeTestSession("sess-1", "ana@example.com", now))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestSessionRowsAreKeyedByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, makeTestSession("sess-raw", "ana@example.com", time.Now())))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id_hash = ?`, "sess-raw").Scan(&count))
	assert.Zero(t, count)

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, hashID("sess-raw"), list[0].ID)
	assert.Len(t, list[0].ID, 64)
}

func TestUpdateAndTouchSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	sess := makeTestSession("sess-1", "ana@example.com", now)
	require.NoError(t, s.CreateSession(ctx, sess))

	sess.IDToken = "rotated"
	sess.TokenExpiresAt = now.Add(2 * time.Hour)
	require.NoError(t, s.UpdateSession(ctx, sess))

	later := now.Add(time.Minute)
	require.NoError(t, s.TouchSession(ctx, "sess-1", later))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.IDToken)
	assert.WithinDuration(t, later, got.LastSeenAt, time.Microsecond)

	err = s.UpdateSession(ctx, makeTestSession("missing", "x@example.com", now))
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateSession(ctx, makeTestSession("a1", "ana@example.com", now)))
	require.NoError(t, s.CreateSession(ctx, makeTestSession("a2", "ana@example.com", now)))
	require.NoError(t, s.CreateSession(ctx, makeTestSession("b1", "ben@example.com", now)))

	require.NoError(t, s.DeleteSession(ctx, "b1"))
	assert.ErrorIs(t, s.DeleteSession(ctx, "b1"), store.ErrNotFound)

	n, err := s.DeleteSessionsByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	expired := makeTestSession("old", "ana@example.com", now.Add(-48*time.Hour))
	// Sub-second precision must not confuse the text comparison.
	expired.ExpiresAt = now.Add(-500 * time.Millisecond)
	require.NoError(t, s.CreateSession(ctx, expired))
	require.NoError(t, s.CreateSession(ctx, makeTestSession("new", "ana@example.com", now)))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetSession(ctx, "new")
	assert.NoError(t, err)
}

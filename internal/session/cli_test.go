package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/identity"
)

func newTestFileCredentials(t *testing.T) (*FileCredentials, *identity.Fake, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	fake := identity.NewFake()
	fake.Now = mock.Now

	path := filepath.Join(t.TempDir(), "cli", "credentials.json")
	return NewFileCredentials(path, fake, time.Minute, mock), fake, mock
}

func TestFileCredentials_SaveLoadClear(t *testing.T) {
	fc, fake, _ := newTestFileCredentials(t)
	ctx := context.Background()

	_, err := fc.Load()
	assert.ErrorIs(t, err, ErrNotSignedIn)

	creds, err := fake.SignUp(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, fc.Save(creds))

	info, err := os.Stat(fc.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := fc.Load()
	require.NoError(t, err)
	assert.Equal(t, creds.IDToken, loaded.IDToken)
	assert.Equal(t, "admin@example.com", loaded.Email)

	require.NoError(t, fc.Clear())
	require.NoError(t, fc.Clear())
	_, err = fc.Token(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestFileCredentials_TokenRefreshes(t *testing.T) {
	fc, fake, mock := newTestFileCredentials(t)
	ctx := context.Background()

	creds, err := fake.SignUp(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, fc.Save(creds))

	token, err := fc.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds.IDToken, token)

	mock.Add(time.Hour)
	token, err = fc.Token(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, creds.IDToken, token)
	assert.Equal(t, 1, fake.RefreshCount())

	loaded, err := fc.Load()
	require.NoError(t, err)
	assert.Equal(t, token, loaded.IDToken)
}

func TestFileCredentials_RevokedRefreshSignsOut(t *testing.T) {
	fc, fake, mock := newTestFileCredentials(t)
	ctx := context.Background()

	creds, err := fake.SignUp(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	creds.RefreshToken = "revoked"
	require.NoError(t, fc.Save(creds))

	mock.Add(2 * time.Hour)
	_, err = fc.Token(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = os.Stat(fc.Path())
	assert.True(t, os.IsNotExist(err))
}

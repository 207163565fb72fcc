package identity

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/errors"
)

func testToken(t *testing.T, email, name string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "uid-1",
		Email:            email,
		Name:             name,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:  server.URL + "/v1",
		TokenURL: server.URL + "/v1/token",
		APIKey:   "api-key",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.http = server.Client()
	t.Cleanup(client.Close)
	return client
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	claims, err := ParseClaims(testToken(t, "ana@example.com", "Ana", exp))
	require.NoError(t, err)

	assert.Equal(t, "uid-1", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestClient_SignIn(t *testing.T) {
	token := testToken(t, "ana@example.com", "Ana", time.Now().Add(time.Hour))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		assert.Equal(t, true, body["returnSecureToken"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"localId":      "uid-1",
			"email":        "ana@example.com",
			"idToken":      token,
			"refreshToken": "rt-1",
			"expiresIn":    "3600",
		})
	})

	creds, err := client.SignIn(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "uid-1", creds.UID)
	assert.Equal(t, "Ana", creds.DisplayName, "display name falls back to the token claim")
	assert.Equal(t, "rt-1", creds.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), creds.ExpiresAt, 5*time.Second)
}

func TestClient_Refresh(t *testing.T) {
	token := testToken(t, "ana@example.com", "Ana", time.Now().Add(time.Hour))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))

		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token":      token,
			"refresh_token": "rt-2",
			"expires_in":    "3600",
			"user_id":       "uid-1",
		})
	})

	creds, err := client.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", creds.Email)
	assert.Equal(t, "rt-2", creds.RefreshToken)
	assert.Equal(t, token, creds.IDToken)
}

func TestClient_ProviderErrors(t *testing.T) {
	tests := []struct {
		message string
		want    errors.Code
	}{
		{"EMAIL_EXISTS", errors.CodeAlreadyExists},
		{"INVALID_LOGIN_CREDENTIALS", errors.CodeInvalidCredentials},
		{"WEAK_PASSWORD : Password should be at least 6 characters", errors.CodeValidation},
		{"TOKEN_EXPIRED", errors.CodeTokenExpired},
		{"TOO_MANY_ATTEMPTS_TRY_LATER", errors.CodeRateLimited},
		{"SOMETHING_NEW", errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 400, "message": tt.message},
				})
			})

			_, err := client.SignUp(context.Background(), "ana@example.com", "x")
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.CodeOf(err))
		})
	}
}

func TestClient_WeakPasswordKeepsProviderDetail(t *testing.T) {
	err := providerError(http.StatusBadRequest, []byte(`{"error":{"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))
	assert.Equal(t, "Password should be at least 6 characters", errors.Message(err, ""))
}

func TestClient_Lookup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:lookup", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]string{{"localId": "uid-1", "email": "ana@example.com", "displayName": "Ana", "photoUrl": "https://img/ana.png"}},
		})
	})

	creds, err := client.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "https://img/ana.png", creds.PhotoURL)
	assert.Equal(t, "tok", creds.IDToken)
}

func TestFake_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	creds, err := f.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.SignUp(ctx, "ana@example.com", "secret1")
	assert.True(t, errors.Is(err, errors.ErrAlreadyExists))

	updated, err := f.UpdateProfile(ctx, creds.IDToken, "Ana", "https://img/ana.png")
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.DisplayName)

	refreshed, err := f.Refresh(ctx, updated.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, updated.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, 1, f.RefreshCount())

	_, err = f.Refresh(ctx, updated.RefreshToken)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))

	_, err = f.SignIn(ctx, "ana@example.com", "wrong")
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/errors"
)

type tokenBox struct {
	mu    sync.Mutex
	token string
}

func (b *tokenBox) set(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func (b *tokenBox) get(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.token == "" {
		return "", errors.Unauthorized("no session")
	}
	return b.token, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	opts.HTTPClient = server.Client()
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_AttachesCurrentTokenPerRequest(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	box := &tokenBox{token: "token-alice"}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]int{"count": 2})
	}, Options{Credentials: box.get})

	ctx := context.Background()
	_, err := client.CountPosts(ctx, "alice@example.com")
	require.NoError(t, err)

	// Switching accounts must be reflected on the very next request.
	box.set("token-bob")
	_, err = client.CountPosts(ctx, "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer token-alice", "Bearer token-bob"}, seen)
}

func TestClient_PublicOmitsCredentials(t *testing.T) {
	var called atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []domain.Tag{{ID: "t1", Name: "go"}})
	}, Options{Credentials: func(context.Context) (string, error) {
		called.Add(1)
		return "secret", nil
	}})

	tags, err := client.Public().Tags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	assert.Zero(t, called.Load())
}

func TestClient_MissingCredentialsAreNotDispatched(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}, Options{Credentials: (&tokenBox{}).get})

	err := client.DeletePost(context.Background(), "p1")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	assert.Zero(t, hits.Load())
}

func TestClient_StatusHooks(t *testing.T) {
	tests := []struct {
		name             string
		status           int
		wantUnauthorized int32
		wantForbidden    int32
		wantCode         errors.Code
	}{
		{"401 signs out once", http.StatusUnauthorized, 1, 0, errors.CodeUnauthorized},
		{"403 forbids once", http.StatusForbidden, 0, 1, errors.CodeForbidden},
		{"404 passes through", http.StatusNotFound, 0, 0, errors.CodeNotFound},
		{"500 passes through", http.StatusInternalServerError, 0, 0, errors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var unauthorized, forbidden atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			}, Options{
				Credentials:    func(context.Context) (string, error) { return "tok", nil },
				OnUnauthorized: func(context.Context) { unauthorized.Add(1) },
				OnForbidden:    func(context.Context) { forbidden.Add(1) },
			})

			_, err := client.GetPost(context.Background(), "p1")
			require.Error(t, err)

			assert.Equal(t, tt.wantUnauthorized, unauthorized.Load())
			assert.Equal(t, tt.wantForbidden, forbidden.Load())
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Equal(t, "nope", errors.Message(err, "fallback"))
		})
	}
}

func TestClient_ServerErrorFieldIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Tag already exists"})
	}, Options{Credentials: func(context.Context) (string, error) { return "tok", nil }})

	_, err := client.CreateTag(context.Background(), "go")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, "Tag already exists", errors.Message(err, "Failed to add tag."))
}

func TestClient_TransportFailureIsUnavailable(t *testing.T) {
	client, err := New(Options{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Public().Tags(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.CodeOf(err))
}

func TestClient_CanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Public().Announcements(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkboard/talkboard-web/internal/domain"
	"github.com/talkboard/talkboard-web/internal/session"
)

func newTestManager() *Manager {
	return NewManager(clock.NewMock(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drain(c *Client) []EventType {
	var out []EventType
	for {
		select {
		case e := <-c.EventChan:
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

func TestManager_BroadcastFilters(t *testing.T) {
	m := newTestManager()

	ana, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)
	ben, err := m.Connect("ben@example.com", false)
	require.NoError(t, err)
	admin, err := m.Connect("root@example.com", true)
	require.NoError(t, err)

	m.broadcast(NewInvalidatedEvent([]string{"posts"}, "", false))
	m.broadcast(NewInvalidatedEvent([]string{"userPosts", "ana@example.com"}, "ana@example.com", false))
	m.broadcast(NewCommentReportedEvent("c1", "p1", "Spam"))
	m.broadcast(NewRoleChangedEvent("ben@example.com", "admin"))

	assert.Equal(t, []EventType{EventQueryInvalidated, EventQueryInvalidated}, drain(ana))
	assert.Equal(t, []EventType{EventQueryInvalidated, EventRoleChanged}, drain(ben))
	assert.Equal(t, []EventType{EventQueryInvalidated, EventCommentReported}, drain(admin))
}

func TestManager_EmailScopedEventsReachEveryTab(t *testing.T) {
	m := newTestManager()

	tab1, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)
	tab2, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)
	other, err := m.Connect("ben@example.com", false)
	require.NoError(t, err)

	m.broadcast(NewRoleChangedEvent("ana@example.com", "admin"))
	assert.Equal(t, []EventType{EventRoleChanged}, drain(tab1))
	assert.Equal(t, []EventType{EventRoleChanged}, drain(tab2))
	assert.Empty(t, drain(other))

	m.Disconnect(tab1.ID)
	m.Disconnect(tab2.ID)
	assert.NotContains(t, m.byEmail, "ana@example.com")
}

func TestManager_DropsForSlowClient(t *testing.T) {
	m := newTestManager()
	c, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)

	for range clientBufferSize + 5 {
		m.broadcast(NewAnnouncementCreatedEvent("a1", "Welcome", "Admin"))
	}
	assert.Len(t, drain(c), clientBufferSize)
}

func TestManager_StartDeliversAndHeartbeats(t *testing.T) {
	mock := clock.NewMock()
	m := NewManager(mock, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	c, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)

	m.EmitInvalidation([]string{"announcements"}, "", false)
	select {
	case e := <-c.EventChan:
		assert.Equal(t, EventQueryInvalidated, e.Type)
		assert.Equal(t, InvalidatedEventData{Key: []string{"announcements"}}, e.Data)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	// The ticker is registered once Start runs; keep advancing until it fires.
	deadline := time.After(time.Second)
	for got := false; !got; {
		mock.Add(defaultHeartbeat)
		select {
		case e := <-c.EventChan:
			assert.Equal(t, EventHeartbeat, e.Type)
			got = true
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("heartbeat not delivered")
		}
	}

	cancel()
	<-done
	assert.Equal(t, 0, m.ClientCount())
}

func TestManager_DisconnectAndShutdown(t *testing.T) {
	m := newTestManager()
	c, err := m.Connect("ana@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())
	_, open := <-c.Done
	assert.False(t, open)

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))
	m.Emit(NewHeartbeatEvent())
}

func TestManager_ClientsIterator(t *testing.T) {
	m := newTestManager()
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := m.Connect(email, false)
		require.NoError(t, err)
	}

	var emails []string
	for c := range m.Clients() {
		emails = append(emails, c.Email)
	}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, emails)
}

func withState(st session.State, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), st)))
	})
}

func TestHandler_RequiresSession(t *testing.T) {
	m := newTestManager()
	h := NewHandler(m, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	withState(session.State{}, h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	withState(session.State{Loading: true}, h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_StreamsEvents(t *testing.T) {
	m := newTestManager()
	h := NewHandler(m, func(context.Context) bool { return true }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	st := session.State{Session: &domain.Session{Email: "root@example.com"}}

	srv := httptest.NewServer(withState(st, h))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, data := readFrame(t, reader)
	assert.Equal(t, "connected", event)
	assert.Contains(t, data, `"is_admin":true`)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	m.broadcast(NewInvalidatedEvent([]string{"reportedComments"}, "", true))

	event, data = readFrame(t, reader)
	assert.Equal(t, "query.invalidated", event)

	var got Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, EventQueryInvalidated, got.Type)
	assert.Equal(t, map[string]any{"key": []any{"reportedComments"}}, got.Data)
}

func readFrame(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

package search

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"github.com/talkboard/talkboard-web/internal/errors"
	"github.com/talkboard/talkboard-web/internal/http/response"
	"github.com/talkboard/talkboard-web/internal/session"
)

const (
	maxMessageSize = 1024
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Kind is one searchable collection of the live search endpoint.
type Kind struct {
	// AdminOnly restricts the kind to admins.
	AdminOnly bool
	// Search runs a committed query.
	Search func(ctx context.Context, q string) (any, error)
}

// LiveOptions configures a LiveHandler.
type LiveOptions struct {
	Kinds map[string]Kind
	// RequireAdmin returns an error unless the request belongs to an admin.
	RequireAdmin   func(ctx context.Context) error
	AllowedOrigins []string
	Clock          clock.Clock
	Delay          time.Duration
	Logger         *slog.Logger
}

// LiveHandler serves GET /ws/search?kind=<kind>.
//
// The browser sends every keystroke as {"query": "..."}; the handler debounces
// them and answers each committed query with one results message. A result for
// a query that has since been superseded is dropped.
type LiveHandler struct {
	opts     LiveOptions
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type clientMessage struct {
	Query string `json:"query"`
}

// ServerMessage is written back for each committed query.
type ServerMessage struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Query   string `json:"query"`
	Results any    `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewLiveHandler creates the live search handler.
func NewLiveHandler(opts LiveOptions) *LiveHandler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &LiveHandler{opts: opts, logger: opts.Logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  maxMessageSize,
		WriteBufferSize: 4096,
	}
	if len(opts.AllowedOrigins) > 0 {
		allowed := make(map[string]bool, len(opts.AllowedOrigins))
		for _, o := range opts.AllowedOrigins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
	return h
}

// ServeHTTP authorizes the request and upgrades it.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("kind")
	kind, ok := h.opts.Kinds[name]
	if !ok {
		response.HandleError(w, errors.Validationf("unknown search kind %q", name), h.logger)
		return
	}

	st := session.FromContext(ctx)
	switch {
	case st.Loading:
		response.Loading(w, h.logger)
		return
	case !st.Authenticated():
		response.HandleError(w, errors.Unauthorized("Please sign in to continue."), h.logger)
		return
	}
	if kind.AdminOnly && h.opts.RequireAdmin != nil {
		if err := h.opts.RequireAdmin(ctx); err != nil {
			response.HandleError(w, err, h.logger)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.serve(ctx, conn, name, kind, st.Email())
}

func (h *LiveHandler) serve(parent context.Context, conn *websocket.Conn, name string, kind Kind, email string) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer conn.Close()

	logger := h.logger.With(slog.String("kind", name), slog.String("email", email))

	var (
		writeMu sync.Mutex
		latest  atomic.Uint64
	)
	write := func(msg ServerMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	debouncer := NewDebouncer(h.opts.Clock, h.opts.Delay, func(q string) {
		seq := latest.Add(1)
		go func() {
			results, err := kind.Search(ctx, q)
			if seq != latest.Load() || ctx.Err() != nil {
				logger.Debug("dropping superseded search result", slog.String("query", q))
				return
			}
			msg := ServerMessage{Type: "results", Kind: name, Query: q, Results: results}
			if err != nil {
				msg = ServerMessage{Type: "error", Kind: name, Query: q, Error: errors.Message(err, "Search failed. Please try again.")}
			}
			if err := write(msg); err != nil {
				logger.Debug("failed to write search result", slog.String("error", err.Error()))
				cancel()
			}
		}()
	})
	defer debouncer.Stop()

	go h.ping(ctx, conn, &writeMu)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live search connection closed", slog.String("error", err.Error()))
			}
			return
		}
		debouncer.Input(msg.Query)
	}
}

func (h *LiveHandler) ping(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

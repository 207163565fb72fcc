package sse

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/talkboard/talkboard-web/internal/id"
)

const (
	defaultHeartbeat = 30 * time.Second
	eventBufferSize  = 1000
	clientBufferSize = 100
)

// Client is one open event stream.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	Email       string
	IsAdmin     bool
}

// Manager fans events out to the open streams.
//
// Streams are indexed by email as well as by ID: most invalidations concern a
// single user's data and only need to reach that user's tabs.
type Manager struct {
	events chan Event
	logger *slog.Logger
	clock  clock.Clock

	heartbeat time.Duration
	running   sync.WaitGroup

	mu      sync.RWMutex
	byID    map[string]*Client
	byEmail map[string]map[string]*Client
	closed  bool
}

// NewManager creates a Manager. A nil clock uses the wall clock.
func NewManager(clk clock.Clock, logger *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{
		events:    make(chan Event, eventBufferSize),
		logger:    logger,
		clock:     clk,
		heartbeat: defaultHeartbeat,
		byID:      make(map[string]*Client),
		byEmail:   make(map[string]map[string]*Client),
	}
}

// Start runs the delivery loop until ctx is done or the event queue is closed.
func (m *Manager) Start(ctx context.Context) {
	m.running.Add(1)
	defer m.running.Done()

	ticker := m.clock.Ticker(m.heartbeat)
	defer ticker.Stop()

	m.logger.Info("SSE delivery loop running", slog.Duration("heartbeat", m.heartbeat))

	for {
		select {
		case <-ctx.Done():
			m.disconnectAll()
			return
		case <-ticker.C:
			m.broadcast(NewHeartbeatEvent())
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)
		}
	}
}

// Shutdown closes the event queue, delivers what is still queued and ends every stream.
// Calling it again is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.events)
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range m.events {
			m.broadcast(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("SSE queue not drained before deadline", slog.Int("pending", len(m.events)))
	}

	m.running.Wait()
	m.disconnectAll()
	m.logger.Info("SSE manager stopped")
	return nil
}

// recipients yields the streams allowed to receive event. Callers hold m.mu.
func (m *Manager) recipients(event Event) iter.Seq[*Client] {
	return func(yield func(*Client) bool) {
		pool := m.byID
		if event.Email != "" {
			pool = m.byEmail[event.Email]
		}
		for _, c := range pool {
			if event.AdminOnly && !c.IsAdmin {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

func (m *Manager) broadcast(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sent, dropped int
	for c := range m.recipients(event) {
		select {
		case c.EventChan <- event:
			sent++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		m.logger.Warn("SSE stream buffer full, events dropped",
			slog.String("event_type", string(event.Type)),
			slog.Int("dropped", dropped))
	}
	if event.Type != EventHeartbeat {
		m.logger.Debug("SSE event delivered",
			slog.String("event_type", string(event.Type)),
			slog.Int("streams", sent))
	}
}

// Connect opens a stream for email.
func (m *Manager) Connect(email string, isAdmin bool) (*Client, error) {
	streamID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}

	c := &Client{
		ID:          streamID,
		Email:       email,
		IsAdmin:     isAdmin,
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
		ConnectedAt: m.clock.Now(),
	}

	m.mu.Lock()
	m.byID[c.ID] = c
	tabs := m.byEmail[email]
	if tabs == nil {
		tabs = make(map[string]*Client)
		m.byEmail[email] = tabs
	}
	tabs[c.ID] = c
	open := len(m.byID)
	m.mu.Unlock()

	m.logger.Info("SSE stream opened",
		slog.String("client_id", c.ID),
		slog.String("email", email),
		slog.Bool("is_admin", isAdmin),
		slog.Int("open_streams", open))
	return c, nil
}

// Disconnect ends the stream with the given ID. Unknown IDs are ignored.
func (m *Manager) Disconnect(streamID string) {
	m.mu.Lock()
	c, ok := m.byID[streamID]
	if ok {
		m.remove(c)
	}
	open := len(m.byID)
	m.mu.Unlock()

	if ok {
		m.logger.Info("SSE stream closed",
			slog.String("client_id", streamID),
			slog.Duration("duration", m.clock.Since(c.ConnectedAt)),
			slog.Int("open_streams", open))
	}
}

// remove unregisters c and closes its channels. Callers hold m.mu for writing.
func (m *Manager) remove(c *Client) {
	delete(m.byID, c.ID)
	if tabs := m.byEmail[c.Email]; tabs != nil {
		delete(tabs, c.ID)
		if len(tabs) == 0 {
			delete(m.byEmail, c.Email)
		}
	}
	close(c.Done)
	close(c.EventChan)
}

func (m *Manager) disconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		m.remove(c)
	}
}

// Emit queues event for delivery. Events emitted after Shutdown are discarded,
// as are events that find the queue full.
func (m *Manager) Emit(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- event:
	default:
		m.logger.Error("SSE queue full, event discarded", slog.String("event_type", string(event.Type)))
	}
}

// EmitInvalidation queues a query invalidation event.
func (m *Manager) EmitInvalidation(key []string, email string, adminOnly bool) {
	m.Emit(NewInvalidatedEvent(key, email, adminOnly))
}

// Clients iterates over the open streams.
func (m *Manager) Clients() iter.Seq[*Client] {
	return func(yield func(*Client) bool) {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for _, c := range m.byID {
			if !yield(c) {
				return
			}
		}
	}
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

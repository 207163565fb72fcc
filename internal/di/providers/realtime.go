package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/talkboard/talkboard-web/internal/config"
	"github.com/talkboard/talkboard-web/internal/logger"
	"github.com/talkboard/talkboard-web/internal/query"
	"github.com/talkboard/talkboard-web/internal/search"
	"github.com/talkboard/talkboard-web/internal/service"
	"github.com/talkboard/talkboard-web/internal/session"
	"github.com/talkboard/talkboard-web/internal/sse"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the SSE manager and starts its event loop.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(nil, log.Component("sse").Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")
	return &SSEManagerHandle{Manager: manager, cancel: cancel}, nil
}

// QueryCacheHandle wraps the query cache with shutdown capability.
type QueryCacheHandle struct {
	*query.Client
}

// Shutdown implements do.Shutdownable.
func (h *QueryCacheHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideQueryCache provides the shared query cache. Every invalidation is
// pushed to the browsers that may hold a copy of the invalidated data.
func ProvideQueryCache(i do.Injector) (*QueryCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	cache := query.New(query.Options{
		StaleTime:  cfg.Query.StaleTime,
		MaxEntries: cfg.Query.MaxEntries,
		Logger:     log.Component("query").Logger,
		Scope:      session.Scope,
		OnInvalidate: func(prefix query.Key) {
			email, adminOnly := service.InvalidationScope(prefix)
			sseHandle.EmitInvalidation([]string(prefix), email, adminOnly)
		},
	})

	log.Info("Query cache ready",
		"stale_time", cfg.Query.StaleTime,
		"max_entries", cfg.Query.MaxEntries,
	)
	return &QueryCacheHandle{Client: cache}, nil
}

// TagIndexHandle wraps the tag index with shutdown capability.
type TagIndexHandle struct {
	*search.TagIndex
}

// Shutdown implements do.Shutdownable.
func (h *TagIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideTagIndex provides the in-memory tag suggestion index.
func ProvideTagIndex(i do.Injector) (*TagIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewTagIndex(log.Component("search").Logger)
	if err != nil {
		return nil, err
	}
	return &TagIndexHandle{TagIndex: index}, nil
}

// WarmTagIndex loads the tag list once so suggestions work before the first
// page that lists tags is rendered. A failure only leaves the index empty.
func WarmTagIndex(i do.Injector) {
	content := do.MustInvoke[*service.ContentService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tags, err := content.Tags(ctx)
	if err != nil {
		log.Warn("Tag index not warmed", "error", err)
		return
	}
	log.Info("Tag index warmed", "tags", len(tags))
}

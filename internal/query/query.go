// Package query is a request-deduplicating cache for reads from the forum API
// and the mutation wrapper that keeps it coherent.
//
// Reads go through Fetch, which serves fresh cached values, shares one in-flight
// call between concurrent readers of a key and stores the result unless the key
// was invalidated while the call was running. Writes go through Mutate, which
// invalidates the keys a mutation affects only after it succeeds.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/talkboard/talkboard-web/internal/errors"
)

const (
	defaultStaleTime  = 30 * time.Second
	defaultGCTime     = 5 * time.Minute
	defaultMaxEntries = 1024
)

// Options configures a Client.
type Options struct {
	// StaleTime is how long a value is served without refetching.
	StaleTime time.Duration
	// GCTime is how long a value is kept at all. Stale values are only
	// served when a refetch fails because the forum API is unavailable.
	GCTime     time.Duration
	MaxEntries int
	Clock      clock.Clock
	Logger     *slog.Logger
	// OnInvalidate is called after every invalidation, outside the cache lock.
	OnInvalidate func(prefix Key)
	// Scope names the credentials a read is made with. Concurrent reads of a
	// key share a call only when their scopes match; the cached value is shared
	// regardless. Nil puts every read in one scope.
	Scope func(ctx context.Context) string
}

type entry struct {
	key       Key
	value     any
	fetchedAt time.Time
}

// flight tracks the generation of a key while readers wait on it. Any
// invalidation that matches the key moves it to a new generation, and a result
// is stored only if its generation is still current.
type flight struct {
	key     Key
	gen     uint64
	waiters int
}

// Client is the query cache. Create one per process and inject it.
type Client struct {
	opts    Options
	clock   clock.Clock
	logger  *slog.Logger
	entries *expirable.LRU[string, entry]

	reads     singleflight.Group
	mutations singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
	seq      uint64
	closed   bool
}

// New creates a query cache.
func New(opts Options) *Client {
	if opts.StaleTime <= 0 {
		opts.StaleTime = defaultStaleTime
	}
	if opts.GCTime < opts.StaleTime {
		opts.GCTime = max(defaultGCTime, opts.StaleTime)
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		opts:     opts,
		clock:    opts.Clock,
		logger:   opts.Logger,
		entries:  expirable.NewLRU[string, entry](opts.MaxEntries, nil, opts.GCTime),
		inflight: make(map[string]*flight),
	}
}

// Fetch returns the value for key, calling fn when there is no fresh cached value.
// Concurrent callers for the same key and scope share one call to fn.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	ks := key.String()

	stale, hasStale := c.lookup(ks)
	if hasStale && c.fresh(stale) {
		if v, ok := stale.value.(T); ok {
			return v, nil
		}
	}

	v, err := c.load(ctx, ks, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		if hasStale && errors.CodeOf(err) == errors.CodeUnavailable {
			if sv, ok := stale.value.(T); ok {
				c.logger.Warn("serving stale query result", slog.String("key", ks), slog.String("error", err.Error()))
				return sv, nil
			}
		}
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, errors.Internal("query result type mismatch for " + ks)
	}
	return out, nil
}

// load runs fn through the read group. A shared call that failed only because
// the caller that started it went away is retried once for this caller.
func (c *Client) load(ctx context.Context, ks string, key Key, fn func(ctx context.Context) (any, error)) (any, error) {
	scope := ""
	if c.opts.Scope != nil {
		scope = c.opts.Scope(ctx)
	}
	for attempt := 0; ; attempt++ {
		gen := c.begin(ks, key)
		ch := c.reads.DoChan(flightKey(ks, scope, gen), func() (any, error) {
			v, err := fn(ctx)
			if err == nil {
				c.store(ks, key, gen, v)
			}
			return v, err
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			c.end(ks)
			return nil, ctx.Err()
		}
		c.end(ks)

		if res.Err != nil && isContextErr(res.Err) && ctx.Err() == nil && attempt == 0 {
			continue
		}
		return res.Val, res.Err
	}
}

// Get returns the cached value for key regardless of freshness.
func Get[T any](c *Client, key Key) (T, bool) {
	var zero T
	e, ok := c.lookup(key.String())
	if !ok {
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Invalidate drops every cached value whose key starts with prefix and makes
// in-flight reads of those keys discard their results. Returns the number of
// cached values dropped.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	removed := 0
	for _, ks := range c.entries.Keys() {
		e, ok := c.entries.Peek(ks)
		if ok && e.key.HasPrefix(prefix) {
			c.entries.Remove(ks)
			removed++
		}
	}
	for _, f := range c.inflight {
		if f.key.HasPrefix(prefix) {
			c.seq++
			f.gen = c.seq
		}
	}
	c.mu.Unlock()

	c.logger.Debug("query invalidated", slog.String("prefix", prefix.String()), slog.Int("removed", removed))
	if c.opts.OnInvalidate != nil {
		c.opts.OnInvalidate(prefix)
	}
	return removed
}

// Len returns the number of cached values.
func (c *Client) Len() int {
	return c.entries.Len()
}

// Close drops all cached values. Reads after Close still work but are not cached.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries.Purge()
	return nil
}

func (c *Client) lookup(ks string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(ks)
}

func (c *Client) fresh(e entry) bool {
	return c.clock.Since(e.fetchedAt) < c.opts.StaleTime
}

func (c *Client) begin(ks string, key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.inflight[ks]
	if !ok {
		c.seq++
		f = &flight{key: key, gen: c.seq}
		c.inflight[ks] = f
	}
	f.waiters++
	return f.gen
}

func (c *Client) end(ks string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f, ok := c.inflight[ks]; ok {
		f.waiters--
		if f.waiters <= 0 {
			delete(c.inflight, ks)
		}
	}
}

func (c *Client) store(ks string, key Key, gen uint64, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	f, ok := c.inflight[ks]
	if !ok || f.gen != gen {
		c.logger.Debug("discarding result of invalidated query", slog.String("key", ks))
		return
	}
	c.entries.Add(ks, entry{key: key, value: v, fetchedAt: c.clock.Now()})
}

func flightKey(ks, scope string, gen uint64) string {
	return ks + "#" + strconv.Quote(scope) + "#" + strconv.FormatUint(gen, 10)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

package search

import (
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultDelay is the idle period after which typed input is committed.
const DefaultDelay = 300 * time.Millisecond

// Debouncer stages raw input and commits it once typing has settled.
//
// Every Input restarts the idle timer. When the timer fires the staged input is
// trimmed and, if non-empty, passed to the commit function. Whitespace-only
// input never commits. Each settled idle period commits at most once.
type Debouncer struct {
	clock  clock.Clock
	delay  time.Duration
	commit func(string)

	mu        sync.Mutex
	timer     *clock.Timer
	raw       string
	committed string
	gen       uint64
	stopped   bool
}

// NewDebouncer creates a debouncer. A nil clock uses the wall clock and a
// non-positive delay uses DefaultDelay.
func NewDebouncer(clk clock.Clock, delay time.Duration, commit func(string)) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{clock: clk, delay: delay, commit: commit}
}

// Input stages raw and restarts the idle timer.
func (d *Debouncer) Input(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.raw = raw
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	value := strings.TrimSpace(d.raw)
	if value == "" {
		d.mu.Unlock()
		return
	}
	d.committed = value
	d.mu.Unlock()

	d.commit(value)
}

// Raw returns the staged input.
func (d *Debouncer) Raw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Committed returns the last committed value.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Stop cancels any pending commit. Input after Stop is ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

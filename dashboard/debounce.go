package dashboard

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long text input must stay unchanged before it
// is committed.
const DefaultQuietPeriod = 500 * time.Millisecond

// Debouncer coalesces rapid text edits. Input records a pending value and
// restarts the quiet timer; when the timer fires the pending value becomes
// the committed one and commit is called with it. A superseded pending value
// is dropped, never queued.
type Debouncer struct {
	mu        sync.Mutex
	quiet     time.Duration
	commit    func(string)
	timer     *time.Timer
	gen       uint64
	pending   string
	hasInput  bool
	committed string
}

// NewDebouncer returns a debouncer that calls commit after quiet has passed
// without further input. commit runs on the timer goroutine.
func NewDebouncer(quiet time.Duration, commit func(string)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet, commit: commit}
}

// Input replaces the pending value and restarts the quiet period.
func (d *Debouncer) Input(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending, d.hasInput = v, true
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// fire commits the pending value unless a later Input superseded it. Stop
// cannot always prevent a timer that has already started, so the generation
// check drops those.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.hasInput {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	if d.commit != nil {
		d.commit(v)
	}
}

// take moves pending to committed. d.mu must be held.
func (d *Debouncer) take() string {
	d.committed = d.pending
	d.pending, d.hasInput = "", false
	d.timer = nil
	return d.committed
}

// Flush commits any pending value immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.hasInput {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.take()
	d.mu.Unlock()
	if d.commit != nil {
		d.commit(v)
	}
}

// Cancel drops any pending value without committing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending, d.hasInput = "", false
}

// Pending returns the uncommitted value, if any.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasInput
}

// Committed returns the last committed value.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

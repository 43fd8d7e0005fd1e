// Package batch implements spec.md §5's two time-based cooperative-
// scheduler utilities: a debounce primitive (used directly, and by
// pkg/history for its flush scheduling) and a microtask-style batcher
// for coalescing synchronous writes. Grounded on the teacher's
// pkg/bubbly/composables/use_debounce.go timer-plus-mutex pattern,
// generalized from a Ref-watching composable tied to a component
// context into a standalone func()-triggered primitive with no
// lifecycle dependency.
package batch

import (
	"sync"
	"time"
)

// Debouncer coalesces repeated Trigger calls within delay into a
// single eventual fn invocation, firing only once the calls stop for
// at least delay. Grounded on UseDebounce's timer-reset-on-each-change
// technique.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

// NewDebouncer constructs a Debouncer that calls fn after delay has
// elapsed since the most recent Trigger.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules (or reschedules) fn to run after delay.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timer == t {
			d.timer = nil
		}
		d.mu.Unlock()
		d.fn()
	})
	d.timer = t
}

// Flush cancels any pending timer and invokes fn immediately, if a
// Trigger is currently pending. Idempotent: calling Flush with nothing
// pending is a no-op.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if pending {
		d.fn()
	}
}

// Stop cancels any pending timer without invoking fn.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

package batch

import (
	"sync"
	"time"
)

// Collector accumulates items added via Add and hands the whole
// pending set to onFlush once Debouncer fires, then clears. Grounded
// on pkg/core/signal.go's Batch(fn)'s batchedSignals accumulate-then-
// drain-on-zero-depth pattern, adapted from "batch depth" nesting
// (irrelevant here — a flush always drains everything pending) to a
// time-debounced flush, since spec.md §4.7's history recorder needs
// exactly this: accumulate StateChanges, flush once mutations settle.
type Collector[T any] struct {
	mu      sync.Mutex
	pending []T
	deb     *Debouncer
}

// NewCollector constructs a Collector whose Add calls schedule a flush
// after delay of silence; onFlush receives every item Add accumulated
// since the last flush, in call order.
func NewCollector[T any](delay DelayFunc, onFlush func([]T)) *Collector[T] {
	c := &Collector[T]{}
	c.deb = NewDebouncer(delay(), func() {
		c.mu.Lock()
		items := c.pending
		c.pending = nil
		c.mu.Unlock()
		if len(items) > 0 {
			onFlush(items)
		}
	})
	return c
}

// DelayFunc returns the debounce window; a plain func() time.Duration
// wrapping a constant is typical. NewCollector calls it once, when the
// Collector is built; a later change to the value it returns does not
// affect an existing Collector.
type DelayFunc = func() time.Duration

// Add appends item to the pending set and (re)schedules a flush.
func (c *Collector[T]) Add(item T) {
	c.mu.Lock()
	c.pending = append(c.pending, item)
	c.mu.Unlock()
	c.deb.Trigger()
}

// Flush forces any pending items through onFlush immediately.
func (c *Collector[T]) Flush() {
	c.deb.Flush()
}

// Stop cancels any pending flush without draining it.
func (c *Collector[T]) Stop() {
	c.deb.Stop()
}

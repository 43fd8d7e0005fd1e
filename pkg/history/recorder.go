// Package history implements spec.md §4.7's history recorder: debounced
// undo/redo/reset stacks over a single reactive handle, plus §6's
// undoable(fn) global-capture variant. Grounded on the teacher's
// pkg/bubbly/composables/use_history.go (Push/Undo/Redo/Clear over
// past/future slices) generalized from a plain value-snapshot stack to
// replaying spec.md's per-event inverse-rule table against the
// handle's own Replayable implementation, and on use_debounce.go for
// the flush-scheduling primitive (here pkg/batch.Debouncer).
package history

import (
	"strings"
	"sync"
	"time"

	"github.com/relaycore/reactor/pkg/batch"
	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Options configures a Recorder. New replaces a zero or negative
// Debounce or MaxHistory with DefaultOptions' value.
type Options struct {
	Debounce   time.Duration
	MaxHistory int
	Resettable bool
}

// DefaultOptions matches spec.md §4.7's stated defaults.
func DefaultOptions() Options {
	return Options{Debounce: 100 * time.Millisecond, MaxHistory: 100}
}

// Recorder maintains backward (applied), forward (undone), and,
// when Resettable, change (original order) sequences for a single
// handle.
type Recorder struct {
	mu     sync.Mutex
	handle engine.Handle
	replay engine.Replayable
	opts   Options

	backward []engine.StateChange
	forward  []engine.StateChange
	change   []engine.StateChange

	isBusy bool

	pendingOrder []string
	pending      map[string]*engine.StateChange

	deb         *batch.Debouncer
	unsubscribe func()
	destroyed   bool
}

// New attaches a Recorder to handle. handle must implement
// engine.Replayable (RecordHandle and SequenceHandle do); if it
// doesn't, New and backward()/forward()/reset() report a (non-fatal)
// violation diagnostic and those calls do nothing instead of panicking, since MapHandle[K,V]/
// SetHandle[T]'s generic key types can't generally be reconstructed
// from a StateChange's string-keyed Keys (see DESIGN.md).
func New(handle engine.Handle, opts Options) *Recorder {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 100
	}
	replay, ok := handle.(engine.Replayable)
	if !ok {
		diag.CaptureViolation("history recorder requires a Replayable handle", handle.HandleID(), nil)
	}

	r := &Recorder{
		handle:  handle,
		replay:  replay,
		opts:    opts,
		pending: map[string]*engine.StateChange{},
	}
	r.deb = batch.NewDebouncer(opts.Debounce, r.flush)
	r.unsubscribe = engine.Subscribe(handle.Meta(), r.onChange, false, false)
	return r
}

func (r *Recorder) onChange(c engine.StateChange) {
	if c.Type == engine.ChangeInit {
		return
	}
	r.mu.Lock()
	if r.isBusy || r.destroyed {
		r.mu.Unlock()
		return
	}
	if r.opts.Resettable {
		r.change = append(r.change, c)
	}
	key := strings.Join(c.Keys, ".")
	if existing, ok := r.pending[key]; ok {
		// Keep the earliest event's shape (Type/Keys/Prev), only the
		// value advances to whatever arrived most recently.
		existing.Value = c.Value
	} else {
		cc := c
		r.pending[key] = &cc
		r.pendingOrder = append(r.pendingOrder, key)
	}
	r.mu.Unlock()
	r.deb.Trigger()
}

// flush merges the pending set into backward, oldest pending entry
// first, evicting from the front once MaxHistory is reached and
// clearing forward (any fresh mutation invalidates previously undone
// ones — spec.md §4.7).
func (r *Recorder) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.pendingOrder {
		entry := r.pending[key]
		if len(r.backward) >= r.opts.MaxHistory {
			r.backward = r.backward[1:]
		}
		r.backward = append(r.backward, *entry)
	}
	r.pending = map[string]*engine.StateChange{}
	r.pendingOrder = nil
	r.forward = nil
}

// Backward pops the most recent merged entry and applies its inverse,
// moving it to the front of forward. Returns false if there is nothing
// to undo or the handle isn't Replayable.
func (r *Recorder) Backward() bool {
	if r.replay == nil {
		diag.CaptureViolation("backward on a non-Replayable handle", r.handle.HandleID(), nil)
		return false
	}
	r.mu.Lock()
	if len(r.backward) == 0 {
		r.mu.Unlock()
		return false
	}
	entry := r.backward[len(r.backward)-1]
	r.backward = r.backward[:len(r.backward)-1]
	r.isBusy = true
	r.mu.Unlock()

	err := r.replay.ApplyInverse(entry)

	r.mu.Lock()
	r.isBusy = false
	r.forward = append([]engine.StateChange{entry}, r.forward...)
	r.mu.Unlock()

	if err != nil {
		diag.CaptureError("history backward failed", err)
		return false
	}
	return true
}

// Forward pops the earliest undone entry and re-applies its forward
// effect, moving it to the back of backward. Returns false if there is
// nothing to redo or the handle isn't Replayable.
func (r *Recorder) Forward() bool {
	if r.replay == nil {
		diag.CaptureViolation("forward on a non-Replayable handle", r.handle.HandleID(), nil)
		return false
	}
	r.mu.Lock()
	if len(r.forward) == 0 {
		r.mu.Unlock()
		return false
	}
	entry := r.forward[0]
	r.forward = r.forward[1:]
	r.isBusy = true
	r.mu.Unlock()

	err := r.replay.ApplyForward(entry)

	r.mu.Lock()
	r.isBusy = false
	r.backward = append(r.backward, entry)
	r.mu.Unlock()

	if err != nil {
		diag.CaptureError("history forward failed", err)
		return false
	}
	return true
}

// Reset undoes every event recorded in change, in reverse order, then
// clears all three sequences. Only valid when Options.Resettable.
func (r *Recorder) Reset() bool {
	if !r.opts.Resettable {
		diag.CaptureViolation("reset on a non-resettable history recorder", r.handle.HandleID(), nil)
		return false
	}
	if r.replay == nil {
		diag.CaptureViolation("reset on a non-Replayable handle", r.handle.HandleID(), nil)
		return false
	}
	r.mu.Lock()
	changes := append([]engine.StateChange(nil), r.change...)
	r.isBusy = true
	r.mu.Unlock()

	for i := len(changes) - 1; i >= 0; i-- {
		if err := r.replay.ApplyInverse(changes[i]); err != nil {
			diag.CaptureError("history reset failed", err)
		}
	}

	r.mu.Lock()
	r.isBusy = false
	r.backward = nil
	r.forward = nil
	r.change = nil
	r.mu.Unlock()
	return true
}

// Clear empties all three sequences without undoing anything.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.backward = nil
	r.forward = nil
	r.change = nil
	r.pending = map[string]*engine.StateChange{}
	r.pendingOrder = nil
	r.mu.Unlock()
}

// Destroy detaches the Recorder from its handle and cancels any
// pending flush.
func (r *Recorder) Destroy() {
	r.mu.Lock()
	r.destroyed = true
	r.mu.Unlock()
	r.deb.Stop()
	r.unsubscribe()
	r.Clear()
}

func (r *Recorder) CanBackward() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.backward) > 0
}

func (r *Recorder) CanForward() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forward) > 0
}

func (r *Recorder) CanReset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Resettable && len(r.change) > 0
}

func (r *Recorder) BackwardList() []engine.StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.StateChange(nil), r.backward...)
}

func (r *Recorder) ForwardList() []engine.StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.StateChange(nil), r.forward...)
}

package derive

import (
	"fmt"
	"sync"

	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Ref is the common scalar-reactive-value contract spec.md §4.6 names:
// all four ref flavors (mutable, immutable, derived, variable) satisfy
// it, so code that only needs a "Get() T, watch for changes" surface
// can stay flavor-agnostic. Grounded on the teacher's Dependency
// interface (pkg/bubbly/dependency.go), generalized to T via Go
// generics instead of the teacher's any-returning Get() + type
// assertion, since this module has no UseEffect-style heterogeneous
// dependency list to support.
type Ref[T any] interface {
	Get() T
	Subscribe(fn func(newVal, oldVal T)) func()
}

// mutableRef is a plain read/write scalar, grounded on
// pkg/bubbly/ref.go's Ref[T] generalized to emit StateChange events
// through pkg/engine's broadcaster instead of having no notification
// at all.
type mutableRef[T any] struct {
	meta *engine.Metadata
	mu   sync.RWMutex
	val  T
}

// NewMutableRef constructs a read/write scalar ref.
func NewMutableRef[T any](initial T) *mutableRef[T] {
	return &mutableRef[T]{
		meta: engine.NewMetadata(engine.NewID(), engine.ShapeRecord, engine.DefaultConfig()),
		val:  initial,
	}
}

func (r *mutableRef[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine.TrackRead(r.meta, "value")
	return r.val
}

// Set assigns value, emitting a "set" event. A no-op write (value
// identical to the current one) is suppressed.
func (r *mutableRef[T]) Set(value T) {
	r.mu.Lock()
	prev := r.val
	if sameValue(prev, value) {
		r.mu.Unlock()
		return
	}
	r.val = value
	r.mu.Unlock()
	engine.Emit(r.meta, engine.StateChange{Type: engine.ChangeSet, Keys: []string{"value"}, Value: value, Prev: prev})
}

func (r *mutableRef[T]) Subscribe(fn func(newVal, oldVal T)) func() {
	return engine.Subscribe(r.meta, func(c engine.StateChange) {
		newVal, _ := c.Value.(T)
		oldVal, _ := c.Prev.(T)
		fn(newVal, oldVal)
	}, false, false)
}

// immutableRef is a read-only scalar: writes are rejected as a
// Violation diagnostic rather than applied (spec.md §4.6's "writes
// diagnose").
type immutableRef[T any] struct {
	meta *engine.Metadata
	val  T
}

// NewImmutableRef constructs a read-only scalar ref over a fixed value.
func NewImmutableRef[T any](value T) *immutableRef[T] {
	return &immutableRef[T]{
		meta: engine.NewMetadata(engine.NewID(), engine.ShapeRecord, engine.ImmutableConfig()),
		val:  value,
	}
}

func (r *immutableRef[T]) Get() T {
	engine.TrackRead(r.meta, "value")
	return r.val
}

// Set always diagnoses and never mutates the slot.
func (r *immutableRef[T]) Set(T) {
	diag.CaptureViolation("set on immutable ref", r.meta.ID, []string{"value"})
}

// Subscribe registers fn, though it is never invoked: an immutable ref's
// value can never change, so no StateChange is ever emitted on its
// metadata. The returned unsubscribe is still meaningful bookkeeping
// for callers that treat every Ref uniformly.
func (r *immutableRef[T]) Subscribe(fn func(newVal, oldVal T)) func() {
	return engine.Subscribe(r.meta, func(c engine.StateChange) {
		newVal, _ := c.Value.(T)
		oldVal, _ := c.Prev.(T)
		fn(newVal, oldVal)
	}, false, false)
}

// derivedRef is a read-only scalar recomputed from its dependencies,
// grounded on pkg/bubbly/computed.go's lazy-cache-plus-invalidation
// design, adapted to recompute eagerly on each dependency's emitted
// StateChange (this module's Observer core already does the
// dependency tracking pkg/bubbly/tracker.go's globalTracker did, so
// derivedRef only needs to subscribe to what Run tracked, not maintain
// its own dependency/dependent graph).
type derivedRef[T any] struct {
	meta *engine.Metadata
	fn   func() T
	mu   sync.RWMutex
	val  T
	obs  *engine.Observer
}

// NewDerivedRef constructs a ref whose value is fn(), recomputed and
// re-broadcast whenever any reactive handle fn reads (tracked via
// engine.CreateObserver) changes.
func NewDerivedRef[T any](fn func() T) *derivedRef[T] {
	r := &derivedRef[T]{
		meta: engine.NewMetadata(engine.NewID(), engine.ShapeRecord, engine.ImmutableConfig()),
		fn:   fn,
	}
	r.recompute(true)
	return r
}

func (r *derivedRef[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine.TrackRead(r.meta, "value")
	return r.val
}

func (r *derivedRef[T]) Subscribe(fn func(newVal, oldVal T)) func() {
	return engine.Subscribe(r.meta, func(c engine.StateChange) {
		newVal, _ := c.Value.(T)
		oldVal, _ := c.Prev.(T)
		fn(newVal, oldVal)
	}, false, false)
}

// Destroy detaches this ref's tracking observer from every dependency
// it last read. Call when the derived value is no longer needed.
func (r *derivedRef[T]) Destroy() {
	r.mu.Lock()
	obs := r.obs
	r.obs = nil
	r.mu.Unlock()
	if obs != nil {
		obs.Destroy()
	}
}

func (r *derivedRef[T]) recompute(initial bool) {
	r.mu.Lock()
	prevObs := r.obs
	r.mu.Unlock()
	if prevObs != nil {
		// Re-running fn() may read a different dependency set than
		// last time (a conditional branch); detach the stale tracking
		// before re-tracking so a dependency fn stopped reading does
		// not keep notifying this ref forever.
		prevObs.Destroy()
	}

	obs := engine.CreateObserver(func(engine.StateChange) { r.recompute(false) }, nil)
	result := obs.Run(func() any { return r.fn() }).(T)

	r.mu.Lock()
	prev := r.val
	r.val = result
	r.obs = obs
	r.mu.Unlock()

	if initial {
		return
	}
	if sameValue(prev, result) {
		return
	}
	engine.Emit(r.meta, engine.StateChange{Type: engine.ChangeSet, Keys: []string{"value"}, Value: result, Prev: prev})
}

// variableRef is a scalar whose mutation goes through a caller-
// supplied setter callback instead of a plain assignment — spec.md
// §4.6's "variable (scalar with set-via-callback semantics)", useful
// for exposing a computed property with a custom write path (e.g. a
// Celsius/Fahrenheit pair backed by one underlying value).
type variableRef[T any] struct {
	meta   *engine.Metadata
	getter func() T
	setter func(T)
}

// NewVariableRef constructs a ref whose reads call getter and whose
// writes call setter; setter is responsible for causing getter's
// result to change (typically by writing through to some other
// reactive handle getter reads from).
func NewVariableRef[T any](getter func() T, setter func(T)) *variableRef[T] {
	return &variableRef[T]{
		meta:   engine.NewMetadata(engine.NewID(), engine.ShapeRecord, engine.DefaultConfig()),
		getter: getter,
		setter: setter,
	}
}

func (r *variableRef[T]) Get() T {
	engine.TrackRead(r.meta, "value")
	return r.getter()
}

func (r *variableRef[T]) Set(value T) {
	prev := r.getter()
	r.setter(value)
	next := r.getter()
	if sameValue(prev, next) {
		return
	}
	engine.Emit(r.meta, engine.StateChange{Type: engine.ChangeSet, Keys: []string{"value"}, Value: next, Prev: prev})
}

func (r *variableRef[T]) Subscribe(fn func(newVal, oldVal T)) func() {
	return engine.Subscribe(r.meta, func(c engine.StateChange) {
		newVal, _ := c.Value.(T)
		oldVal, _ := c.Prev.(T)
		fn(newVal, oldVal)
	}, false, false)
}

// sameValue mirrors engine's own panic-recovering equality check
// (ported from the teacher's Signal.Set) since pkg/derive cannot import
// engine's unexported helper.
func sameValue(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// Registry implements spec.md §3/§4.1's bidirectional handle tables:
// id -> Handle, underlying value -> Handle, plus the BUSY set that makes
// a self-referential wrap terminate (invariant 7). Grounded on the
// teacher's pkg/core/signal.go global signalRegistry + idCounter scheme,
// generalized from a process-global map into a struct so tests can use
// an isolated registry, and from a counter-based id
// (`fmt.Sprintf("signal_%d", ...)`) to github.com/google/uuid, since a
// reactive-state engine's handles plausibly outlive a single process run
// (persisted snapshots, devtools sessions) and a collision-free id is
// worth the one extra dependency.
package engine

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Registry owns every Metadata and the reverse lookup from a raw
// initializer to the handle that already wraps it.
type Registry struct {
	mu sync.Mutex

	byID         map[string]Handle
	byUnderlying map[any]Handle

	// busy holds the identity key of every underlying value currently
	// mid-construction, so a cyclic init (o.self = o) resolves to the
	// handle being built instead of recursing forever.
	busy map[any]Handle
}

// NewRegistry returns an empty, ready-to-use registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:         make(map[string]Handle),
		byUnderlying: make(map[any]Handle),
		busy:         make(map[any]Handle),
	}
}

// Default is the process-wide registry used by the root reactor package.
// Tests that need isolation construct their own Registry directly.
var Default = NewRegistry()

// NewID generates a collision-free handle/observer id.
func NewID() string {
	return uuid.NewString()
}

// identityKey returns a comparable key for v suitable for use as a map
// key, so distinct map[string]any/[]any values with equal contents are
// not conflated (invariant 1 requires *pointer* identity, not structural
// equality: reentrant wrapping of the same underlying returns the same
// handle, but two separately-constructed-but-equal records must not).
func identityKey(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Chan, reflect.Func:
		return rv.Pointer()
	default:
		return v
	}
}

// Lookup resolves a handle by id.
func (r *Registry) Lookup(id string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	return h, ok
}

// Find resolves the handle already wrapping init, if any — spec.md
// §4.1's `find(init)`.
func (r *Registry) Find(init any) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byUnderlying[identityKey(init)]
	return h, ok
}

// Has reports whether value is itself a registered handle (by id) or a
// raw value already wrapped by one — spec.md §6's `has(value)`.
func (r *Registry) Has(value any) bool {
	if h, ok := value.(Handle); ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		_, registered := r.byID[h.HandleID()]
		return registered
	}
	_, ok := r.Find(value)
	return ok
}

// Register makes h addressable by id and, if underlying is non-nil,
// by identity. Called once per handle, at the end of construction.
func (r *Registry) Register(h Handle, underlying any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[h.HandleID()] = h
	if underlying != nil {
		key := identityKey(underlying)
		r.byUnderlying[key] = h
		delete(r.busy, key)
	}
}

// Unregister removes h entirely. Idempotent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	for k, v := range r.byUnderlying {
		if v.HandleID() == id {
			delete(r.byUnderlying, k)
		}
	}
	_ = h
}

// Resolve returns a handle already wrapping underlying, whether fully
// registered or still mid-construction (the cycle case, invariant 7).
func (r *Registry) Resolve(underlying any) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := identityKey(underlying)
	if h, ok := r.byUnderlying[key]; ok {
		return h, true
	}
	if h, ok := r.busy[key]; ok {
		return h, true
	}
	return nil, false
}

// MarkBusy records h as the in-progress handle for underlying before its
// fields are fully populated, so a cyclic reference encountered mid-wrap
// (o.self = o) resolves to h instead of recursing forever. Callers must
// follow up with Register once construction completes.
func (r *Registry) MarkBusy(underlying any, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy[identityKey(underlying)] = h
}

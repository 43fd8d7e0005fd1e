// SetHandle implements the set shape (spec.md §4.1's fourth family): a
// reactive set of comparable elements. Grounded on MapHandle's
// read/write trap structure with the key dimension dropped — a set's
// StateChange carries the touched element(s) in Value/Prev with an
// empty Keys, matching spec.md §3's description of "add"/"delete" on a
// set having no key path.
package engine

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
)

// SetHandle is the Handle implementation backing reactor.Model's set
// variant.
type SetHandle[T comparable] struct {
	id   string
	meta *Metadata
	data map[T]struct{}
}

var _ Handle = (*SetHandle[string])(nil)

// NewSetHandle wraps init as a set handle under cfg.
func NewSetHandle[T comparable](init []T, cfg Config, schema SchemaFunc) *SetHandle[T] {
	id := NewID()
	meta := NewMetadata(id, ShapeSet, cfg)
	meta.Schema = schema

	data := make(map[T]struct{}, len(init))
	for _, v := range init {
		data[v] = struct{}{}
	}

	h := &SetHandle[T]{id: id, meta: meta, data: data}
	Default.Register(h, nil)
	forEachReceiver(func(r Receiver) { r.OnInit(id, ShapeSet) })
	return h
}

func (h *SetHandle[T]) HandleID() string { return h.id }
func (h *SetHandle[T]) Meta() *Metadata  { return h.meta }

func (h *SetHandle[T]) Raw() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	return h.data
}

func (h *SetHandle[T]) Snapshot() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	out := make([]T, 0, len(h.data))
	for v := range h.data {
		out = append(out, v)
	}
	return out
}

// Has reports whether value is a member, tracking the collection-
// mutation sentinel since a set's membership query depends on every
// structural change rather than a single addressable key.
func (h *SetHandle[T]) Has(value T) bool {
	h.meta.mu.Lock()
	_, ok := h.data[value]
	h.meta.mu.Unlock()
	TrackRead(h.meta, CollectionMutations)
	return ok
}

// Len reports the set's size.
func (h *SetHandle[T]) Len() int {
	h.meta.mu.Lock()
	n := len(h.data)
	h.meta.mu.Unlock()
	TrackRead(h.meta, CollectionMutations)
	return n
}

// Add inserts value, emitting an "add" event. Adding an existing
// member is a no-op.
func (h *SetHandle[T]) Add(value T) {
	if !h.checkWritable("add") {
		return
	}
	if h.meta.Schema != nil {
		if ok, issues := h.meta.Schema(value); !ok {
			Emit(h.meta, StateChange{
				Type: ChangeAdd, Value: value,
				Error: fmt.Errorf("schema validation failed for value %v", value), Issues: issues,
			})
			return
		}
	}

	h.meta.mu.Lock()
	if _, exists := h.data[value]; exists {
		h.meta.mu.Unlock()
		return
	}
	h.data[value] = struct{}{}
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeAdd, Value: value})
}

// Delete removes value, emitting a "delete" event carrying it as Prev.
// Deleting a non-member is a no-op.
func (h *SetHandle[T]) Delete(value T) {
	if !h.checkWritable("delete") {
		return
	}
	h.meta.mu.Lock()
	if _, exists := h.data[value]; !exists {
		h.meta.mu.Unlock()
		return
	}
	delete(h.data, value)
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeDelete, Prev: value})
}

// Clear empties the set, emitting a "clear" event whose Prev is the
// full prior member list.
func (h *SetHandle[T]) Clear() {
	if !h.checkWritable("clear") {
		return
	}
	h.meta.mu.Lock()
	if len(h.data) == 0 {
		h.meta.mu.Unlock()
		return
	}
	prev := make([]T, 0, len(h.data))
	for v := range h.data {
		prev = append(prev, v)
	}
	h.data = make(map[T]struct{})
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeClear, Prev: prev})
}

func (h *SetHandle[T]) Destroy(force bool) bool {
	return DestroyHandle(h, force)
}

func (h *SetHandle[T]) checkWritable(op string) bool {
	if h.meta.Destroyed() {
		diag.CaptureViolation(op+" on destroyed handle", h.id, nil)
		return false
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation(op+" on immutable handle", h.id, nil)
		return false
	}
	return true
}

// MapHandle implements the keyed-map shape (spec.md §4.1's third
// family): a reactive map keyed by an arbitrary comparable type, as
// opposed to RecordHandle's string-keyed bag. Go's lack of runtime
// generic-type inference means this family cannot be auto-detected by
// the untyped root factory (see handle.go's Linkable doc) and is
// instead constructed explicitly via NewMapHandle[K, V]. Grounded on
// RecordHandle's read/write trap structure, generalized from
// map[string]any to map[K]V.
package engine

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
)

// MapHandle is the Handle implementation backing reactor.Model's keyed-
// map variant.
type MapHandle[K comparable, V any] struct {
	id   string
	meta *Metadata
	data map[K]V
}

var _ Handle = (*MapHandle[string, any])(nil)

// NewMapHandle wraps init as a keyed-map handle under cfg. Values are
// not recursively wrapped: K is not necessarily string and V is not
// necessarily any, so there is no general way to detect a linkable
// nested value the way RecordHandle/SequenceHandle do; callers that
// want a reactive nested value construct it themselves and store the
// resulting handle as V.
func NewMapHandle[K comparable, V any](init map[K]V, cfg Config, schema SchemaFunc) *MapHandle[K, V] {
	id := NewID()
	meta := NewMetadata(id, ShapeMap, cfg)
	meta.Schema = schema

	data := make(map[K]V, len(init))
	for k, v := range init {
		data[k] = v
	}

	h := &MapHandle[K, V]{id: id, meta: meta, data: data}
	Default.Register(h, nil)
	forEachReceiver(func(r Receiver) { r.OnInit(id, ShapeMap) })
	return h
}

func (h *MapHandle[K, V]) HandleID() string { return h.id }
func (h *MapHandle[K, V]) Meta() *Metadata  { return h.meta }

func (h *MapHandle[K, V]) Raw() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	return h.data
}

func (h *MapHandle[K, V]) Snapshot() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	out := make(map[K]V, len(h.data))
	for k, v := range h.data {
		out[k] = v
	}
	return out
}

// Get reads the value at key, tracking the read against the
// collection-mutation sentinel (K is not necessarily stringable, so
// per-key tracking uses fmt.Sprint rather than RecordHandle's bare
// string key).
func (h *MapHandle[K, V]) Get(key K) (V, bool) {
	h.meta.mu.Lock()
	v, ok := h.data[key]
	h.meta.mu.Unlock()
	TrackRead(h.meta, mapKeyString(key))
	return v, ok
}

// Has reports whether key is present.
func (h *MapHandle[K, V]) Has(key K) bool {
	h.meta.mu.Lock()
	_, ok := h.data[key]
	h.meta.mu.Unlock()
	TrackRead(h.meta, mapKeyString(key))
	return ok
}

// Len reports the number of entries, tracking the collection-mutation
// sentinel since it depends on every structural change.
func (h *MapHandle[K, V]) Len() int {
	h.meta.mu.Lock()
	n := len(h.data)
	h.meta.mu.Unlock()
	TrackRead(h.meta, CollectionMutations)
	return n
}

// Set assigns value at key, emitting a "set" event. A no-op write
// (identical value already present) is suppressed.
func (h *MapHandle[K, V]) Set(key K, value V) {
	if !h.checkWritable("set") {
		return
	}
	if h.meta.Schema != nil {
		if ok, issues := h.meta.Schema(value); !ok {
			Emit(h.meta, StateChange{
				Type: ChangeSet, Keys: []string{mapKeyString(key)}, Value: value,
				Error: fmt.Errorf("schema validation failed for key %v", key), Issues: issues,
			})
			return
		}
	}

	h.meta.mu.Lock()
	prev, existed := h.data[key]
	if existed && sameValue(prev, value) {
		h.meta.mu.Unlock()
		return
	}
	h.data[key] = value
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeSet, Keys: []string{mapKeyString(key)}, Value: value, Prev: prev})
}

// Delete removes key, emitting a "delete" event carrying the removed
// value as Prev. A delete of an absent key is a no-op.
func (h *MapHandle[K, V]) Delete(key K) {
	if !h.checkWritable("delete") {
		return
	}
	h.meta.mu.Lock()
	prev, existed := h.data[key]
	if !existed {
		h.meta.mu.Unlock()
		return
	}
	delete(h.data, key)
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeDelete, Keys: []string{mapKeyString(key)}, Prev: prev})
}

// Clear empties the map, emitting a "clear" event whose Prev is the
// full prior entry list (spec.md §4.1's "clear" contract).
func (h *MapHandle[K, V]) Clear() {
	if !h.checkWritable("clear") {
		return
	}
	h.meta.mu.Lock()
	if len(h.data) == 0 {
		h.meta.mu.Unlock()
		return
	}
	prev := h.data
	h.data = make(map[K]V)
	h.meta.mu.Unlock()

	Emit(h.meta, StateChange{Type: ChangeClear, Prev: prev})
}

func (h *MapHandle[K, V]) Destroy(force bool) bool {
	return DestroyHandle(h, force)
}

func (h *MapHandle[K, V]) checkWritable(op string) bool {
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

func mapKeyString[K comparable](key K) string {
	return fmt.Sprintf("%v", key)
}

// RecordHandle implements the record shape (spec.md §4.1's first
// family) over a map[string]any. Grounded on the teacher's
// pkg/core/state.go State[T] read/write trap pair, generalized from a
// single typed slot to an arbitrary string-keyed bag whose values may
// themselves be linkable and get wrapped recursively (invariant 5).
package engine

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
)

// RecordHandle is the Handle implementation backing reactor.Wrap of a
// map[string]any initializer.
type RecordHandle struct {
	id   string
	meta *Metadata
	data map[string]any
}

var _ Handle = (*RecordHandle)(nil)

// NewRecord wraps init as a record handle under cfg, recursively
// wrapping any linkable nested value when cfg.Recursive is set. Cyclic
// inits (a value that reaches itself through nested fields) terminate
// via the registry's BUSY set (invariant 7): if init is already
// mid-construction, the in-progress handle is returned instead of
// recursing forever.
func NewRecord(init map[string]any, cfg Config, schema SchemaFunc) *RecordHandle {
	if h, ok := Default.Resolve(init); ok {
		if rh, ok := h.(*RecordHandle); ok {
			return rh
		}
	}

	id := NewID()
	meta := NewMetadata(id, ShapeRecord, cfg)
	meta.Schema = schema

	h := &RecordHandle{id: id, meta: meta}
	if cfg.Cloned {
		h.data = make(map[string]any, len(init))
	} else {
		// Raw variant: take ownership of init's own backing map instead
		// of copying into a fresh one, so external mutation of the
		// caller's original map is visible through h (and vice versa).
		h.data = init
	}
	Default.MarkBusy(init, h)

	for k, v := range init {
		h.data[k] = wrapNestedIfNeeded(v, cfg)
	}

	Default.Register(h, init)
	for k, v := range h.data {
		if child, ok := v.(Handle); ok {
			Link(meta, child.Meta(), k)
		}
	}
	forEachReceiver(func(r Receiver) { r.OnInit(id, ShapeRecord) })
	return h
}

// wrapNestedIfNeeded recursively wraps v as its own handle when cfg
// allows it and v is one of the dynamically-detectable shapes.
// Keyed-map/set values must already arrive pre-wrapped by the caller
// (NewMapHandle/NewSetHandle), since Go cannot infer their type
// parameters from v's static type here.
func wrapNestedIfNeeded(v any, cfg Config) any {
	if !cfg.Recursive || cfg.Deferred {
		return v
	}
	switch t := v.(type) {
	case map[string]any:
		return NewRecord(t, cfg, nil)
	case []any:
		return NewSequence(t, cfg, nil)
	default:
		return v
	}
}

func (h *RecordHandle) HandleID() string { return h.id }
func (h *RecordHandle) Meta() *Metadata  { return h.meta }

// Raw returns the live underlying map without tracking the read or
// unwrapping nested handles.
func (h *RecordHandle) Raw() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	return h.data
}

// Snapshot returns a detached, deep structural copy with every nested
// handle resolved down to its own plain value.
func (h *RecordHandle) Snapshot() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	out := make(map[string]any, len(h.data))
	for k, v := range h.data {
		out[k] = snapshotValue(v)
	}
	return out
}

func snapshotValue(v any) any {
	if h, ok := v.(Handle); ok {
		return h.Snapshot()
	}
	return v
}

// Get reads key, tracking the read with the active Observer.
func (h *RecordHandle) Get(key string) any {
	h.meta.mu.Lock()
	v, ok := h.data[key]
	h.meta.mu.Unlock()
	TrackRead(h.meta, key)
	forEachReceiver(func(r Receiver) { r.OnGet(h.id, key) })
	if !ok {
		return nil
	}
	return v
}

// Has reports whether key is present. Like Get, it tracks key with the
// active Observer.
func (h *RecordHandle) Has(key string) bool {
	h.meta.mu.Lock()
	_, ok := h.data[key]
	h.meta.mu.Unlock()
	TrackRead(h.meta, key)
	return ok
}

// Set assigns value at key, emitting a "set" event. A no-op write
// (value identical to the current one) still reaches here but is
// suppressed before Emit, matching spec.md's "setting an unchanged
// value" edge case.
func (h *RecordHandle) Set(key string, value any) {
	if h.meta.Destroyed() {
		diag.CaptureViolation("set on destroyed handle", h.id, []string{key})
		return
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation("set on immutable handle", h.id, []string{key})
		return
	}

	if h.meta.Schema != nil {
		if ok, issues := h.meta.Schema(value); !ok {
			Emit(h.meta, StateChange{
				Type: ChangeSet, Keys: []string{key}, Value: value,
				Error: fmt.Errorf("schema validation failed for key %q", key), Issues: issues,
			})
			return
		}
	}

	wrapped := wrapNestedIfNeeded(value, h.meta.Config)

	h.meta.mu.Lock()
	prev, existed := h.data[key]
	if existed && sameValue(prev, value) {
		h.meta.mu.Unlock()
		return
	}
	h.data[key] = wrapped
	h.meta.mu.Unlock()

	if prevChild, ok := prev.(Handle); ok {
		Unlink(h.meta, key)
		_ = prevChild
	}
	if childHandle, ok := wrapped.(Handle); ok {
		Link(h.meta, childHandle.Meta(), key)
	}

	Emit(h.meta, StateChange{Type: ChangeSet, Keys: []string{key}, Value: value, Prev: snapshotValue(prev)})
}

// Delete removes key, emitting a "delete" event carrying the removed
// value as Prev. A delete of an absent key is a no-op.
func (h *RecordHandle) Delete(key string) {
	if h.meta.Destroyed() {
		diag.CaptureViolation("delete on destroyed handle", h.id, []string{key})
		return
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation("delete on immutable handle", h.id, []string{key})
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

	if _, ok := prev.(Handle); ok {
		Unlink(h.meta, key)
	}

	Emit(h.meta, StateChange{Type: ChangeDelete, Keys: []string{key}, Prev: snapshotValue(prev)})
}

// Assign merges patch into the record key by key, emitting a single
// "assign" event carrying the whole patch rather than one event per
// key (spec.md §4.1's batched-patch edge case).
func (h *RecordHandle) Assign(patch map[string]any) {
	if h.meta.Destroyed() {
		diag.CaptureViolation("assign on destroyed handle", h.id, nil)
		return
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation("assign on immutable handle", h.id, nil)
		return
	}

	prevFull := make(map[string]any, len(patch))
	unlinkKeys := make([]string, 0, len(patch))
	wrappedFull := make(map[string]any, len(patch))
	h.meta.mu.Lock()
	for k, v := range patch {
		prev, existed := h.data[k]
		if existed {
			prevFull[k] = snapshotValue(prev)
			if _, ok := prev.(Handle); ok {
				unlinkKeys = append(unlinkKeys, k)
			}
		}
		wrapped := wrapNestedIfNeeded(v, h.meta.Config)
		h.data[k] = wrapped
		wrappedFull[k] = wrapped
	}
	h.meta.mu.Unlock()

	for _, k := range unlinkKeys {
		Unlink(h.meta, k)
	}
	for k, wrapped := range wrappedFull {
		if childHandle, ok := wrapped.(Handle); ok {
			Link(h.meta, childHandle.Meta(), k)
		}
	}

	Emit(h.meta, StateChange{Type: ChangeAssign, Value: patch, Prev: prevFull})
}

// Remove deletes every key in keys, emitting a single "remove" event
// (the root reactor.Remove operation's record-shape counterpart to
// MapHandle/SetHandle's Delete — batched here since a record's keys
// arrive as a variadic list rather than one call per key). Keys already
// absent are skipped; Prev carries only the keys that actually existed.
func (h *RecordHandle) Remove(keys ...string) {
	if h.meta.Destroyed() {
		diag.CaptureViolation("remove on destroyed handle", h.id, keys)
		return
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation("remove on immutable handle", h.id, keys)
		return
	}

	prev := make(map[string]any)
	var unlinkKeys []string
	h.meta.mu.Lock()
	for _, k := range keys {
		if v, existed := h.data[k]; existed {
			prev[k] = snapshotValue(v)
			if _, ok := v.(Handle); ok {
				unlinkKeys = append(unlinkKeys, k)
			}
			delete(h.data, k)
		}
	}
	h.meta.mu.Unlock()

	if len(prev) == 0 {
		return
	}
	for _, k := range unlinkKeys {
		Unlink(h.meta, k)
	}

	removedKeys := make([]string, 0, len(prev))
	for k := range prev {
		removedKeys = append(removedKeys, k)
	}
	Emit(h.meta, StateChange{Type: ChangeRemove, Keys: removedKeys, Prev: prev})
}

// Clear empties the record, emitting a "clear" event whose Prev is the
// full prior key/value map, matching MapHandle/SetHandle's Clear.
func (h *RecordHandle) Clear() {
	if h.meta.Destroyed() {
		diag.CaptureViolation("clear on destroyed handle", h.id, nil)
		return
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation("clear on immutable handle", h.id, nil)
		return
	}

	h.meta.mu.Lock()
	if len(h.data) == 0 {
		h.meta.mu.Unlock()
		return
	}
	prev := make(map[string]any, len(h.data))
	var unlinkKeys []string
	for k, v := range h.data {
		prev[k] = snapshotValue(v)
		if _, ok := v.(Handle); ok {
			unlinkKeys = append(unlinkKeys, k)
		}
	}
	h.data = make(map[string]any)
	h.meta.mu.Unlock()

	for _, k := range unlinkKeys {
		Unlink(h.meta, k)
	}

	Emit(h.meta, StateChange{Type: ChangeClear, Prev: prev})
}

// ApplyInverse implements spec.md §4.7's inverse-rule table for the
// record shape's event types (set/delete/assign/remove/clear). pkg/history
// calls this from backward().
func (h *RecordHandle) ApplyInverse(c StateChange) error {
	switch c.Type {
	case ChangeSet:
		key := firstKey(c.Keys)
		if c.Prev == nil {
			h.Delete(key)
		} else {
			h.Set(key, c.Prev)
		}
	case ChangeDelete:
		h.Set(firstKey(c.Keys), c.Prev)
	case ChangeAssign:
		patch, _ := c.Prev.(map[string]any)
		h.Assign(patch)
	case ChangeRemove:
		patch, _ := c.Prev.(map[string]any)
		h.Assign(patch)
	case ChangeClear:
		patch, _ := c.Prev.(map[string]any)
		h.Assign(patch)
	default:
		return fmt.Errorf("record: no inverse for change type %q", c.Type)
	}
	return nil
}

// ApplyForward re-applies c's original forward effect (redo).
func (h *RecordHandle) ApplyForward(c StateChange) error {
	switch c.Type {
	case ChangeSet:
		h.Set(firstKey(c.Keys), c.Value)
	case ChangeDelete:
		h.Delete(firstKey(c.Keys))
	case ChangeAssign:
		patch, _ := c.Value.(map[string]any)
		h.Assign(patch)
	case ChangeRemove:
		h.Remove(c.Keys...)
	case ChangeClear:
		h.Clear()
	default:
		return fmt.Errorf("record: no forward replay for change type %q", c.Type)
	}
	return nil
}

// RestoreSnapshot replaces h's entire contents with v, a previously
// decoded snapshot (pkg/codec's persisted-state restore path). v must
// be a map[string]any; anything else is a decode-shape mismatch.
func (h *RecordHandle) RestoreSnapshot(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("record: RestoreSnapshot expects map[string]any, got %T", v)
	}
	h.Assign(m)
	return nil
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// Destroy tears h down, refusing unless force is set or no external
// subscriber remains attached (spec.md's Lifecycle section).
func (h *RecordHandle) Destroy(force bool) bool {
	return DestroyHandle(h, force)
}

// sameValue reports whether a and b should be treated as the same
// value for the purposes of suppressing a no-op write. Handles compare
// by identity; everything else falls back to the teacher's
// panic-recovering string comparison (pkg/core/signal.go's Set), since
// a bare == panics on uncomparable underlying types like maps/slices.
func sameValue(a, b any) (equal bool) {
	ah, aok := a.(Handle)
	bh, bok := b.(Handle)
	if aok || bok {
		return aok && bok && ah.HandleID() == bh.HandleID()
	}
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

package engine

// Shape identifies which of the four linkable families a handle wraps.
// Go's static type system can't express the source language's single
// dynamic "object" type, so SPEC_FULL.md's record shape maps onto
// map[string]any (RecordHandle), sequence onto []any (SequenceHandle),
// and keyed-map/set onto the generic MapHandle[K,V]/SetHandle[T] — see
// DESIGN.md's "shape-family mapping" entry.
type Shape string

const (
	ShapeRecord   Shape = "record"
	ShapeSequence Shape = "sequence"
	ShapeMap      Shape = "map"
	ShapeSet      Shape = "set"
)

// Handle is the opaque facade every shape family implements. It is
// deliberately minimal: shape-specific reads/writes live on the concrete
// types (RecordHandle, SequenceHandle, MapHandle, SetHandle); Handle only
// exposes what the registry, broadcaster, and relational graph need to
// treat every shape uniformly.
type Handle interface {
	// HandleID returns the stable id assigned at registration.
	HandleID() string
	// Meta returns the handle's metadata record.
	Meta() *Metadata
	// Snapshot returns a detached, deep structural copy of the
	// underlying value with no reactive bindings.
	Snapshot() any
	// Raw returns the live underlying value without tracking the read.
	Raw() any
}

// Replayable is satisfied by concrete handles that know how to apply a
// previously-emitted StateChange's inverse (undo) or re-apply its
// original forward effect (redo) directly against their own storage.
// pkg/history uses this to implement backward()/forward() without
// needing shape-specific knowledge of each handle's mutation surface —
// every shape already knows how to mutate itself, so replay logic lives
// next to that shape's Set/Push/Delete/etc rather than in a type-switch
// external to the engine package.
type Replayable interface {
	// ApplyInverse undoes c per spec.md §4.7's inverse-rule table.
	ApplyInverse(c StateChange) error
	// ApplyForward re-applies c's original forward effect (redo).
	ApplyForward(c StateChange) error
}

// Restorer is satisfied by concrete handles that can replace their
// entire contents from a previously decoded snapshot value. pkg/codec's
// persisted-state store uses this to apply a loaded snapshot back onto
// a handle at construction time.
type Restorer interface {
	RestoreSnapshot(v any) error
}

// Linkable reports whether v is one of the two dynamically-shaped
// families the untyped root factory (reactor.Wrap) recognizes: record
// (map[string]any) or sequence ([]any). The other two families,
// keyed-map and set, require a comparable key/element type parameter
// that Go generics cannot infer from an `any` at runtime, so they are
// constructed explicitly via NewMapHandle[K,V]/NewSetHandle[T] instead
// of being auto-detected here — see DESIGN.md's "shape-family mapping"
// entry for the full rationale. Non-linkable values are returned
// unchanged by the root wrap() factory, per spec.md §4.1.
func Linkable(v any) bool {
	switch v.(type) {
	case map[string]any:
		return true
	case []any:
		return true
	}
	return false
}

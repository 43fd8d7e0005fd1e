package reactor

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Get returns h's underlying raw value without registering a tracked
// read (§4.1's "get(handle, silent?)" — reactor.Get is always the silent
// form; a tracked read happens only through a shape's own Get/property
// accessor while an Observer is running, per §4.3).
func Get(h Handle) any {
	return h.Raw()
}

// Snapshot returns a deep structural copy of h's underlying value with
// no reactive bindings (§4.1).
func Snapshot(h Handle) any {
	return h.Snapshot()
}

// Has reports whether value is itself a registered handle or a raw
// value already wrapped by one (§4.1's "has(value)").
func Has(value any) bool {
	return engine.Default.Has(value)
}

// Find resolves the handle already wrapping init, if any (§4.1's
// "find(init)").
func Find(init any) (Handle, bool) {
	return engine.Default.Find(init)
}

// assigner is satisfied by the one shape family whose batch-patch
// operation has a map[string]any surface: the record shape. Keyed-map
// and set handles are generic over their key/value types and so cannot
// implement a non-generic interface method taking map[string]any — their
// batch writes go through their own typed Set in a loop instead.
type assigner interface {
	Assign(patch map[string]any)
}

// Assign applies patch to h as a single batch update, emitting one
// "assign" event (§4.1). Only record-shaped handles support this; any
// other shape is a contract violation since the patch shape
// (map[string]any) has no meaning for a sequence/keyed-map/set.
func Assign(h Handle, patch map[string]any) error {
	a, ok := h.(assigner)
	if !ok {
		return contractViolation(h, "assign")
	}
	a.Assign(patch)
	return nil
}

// remover is satisfied by handles that support a variadic string-keyed
// batch removal. Only the record shape's keys are strings by
// construction; a keyed-map's Delete is generic over K and so cannot
// satisfy this fixed-signature interface unless instantiated at K=string,
// in which case call its typed Delete directly instead.
type remover interface {
	Remove(keys ...string)
}

// Remove deletes every key in keys from h as a single batch, emitting
// one "remove" event (§4.1).
func Remove(h Handle, keys ...string) error {
	r, ok := h.(remover)
	if !ok {
		return contractViolation(h, "remove")
	}
	r.Remove(keys...)
	return nil
}

// clearer is satisfied by every shape family that has a bulk-empty
// operation with no arguments: record, keyed-map, and set all implement
// Clear() regardless of their generic type parameters, since Go
// interface satisfaction only inspects the method signature.
type clearer interface {
	Clear()
}

// Clear empties h, emitting a "clear" event (§4.1). Sequences have no
// "clear" verb of their own (use Splice to remove the full range, or
// destroy and re-wrap); calling Clear on one is a contract violation.
func Clear(h Handle) error {
	c, ok := h.(clearer)
	if !ok {
		return contractViolation(h, "clear")
	}
	c.Clear()
	return nil
}

// destroyer is the Destroy(force bool) bool shape every concrete handle
// type implements (it is deliberately kept off the root engine.Handle
// interface since not every caller of Handle needs lifecycle control).
type destroyer interface {
	Destroy(force bool) bool
}

// Destroy tears h down: detaches subscribers, unlinks children, and
// cascades into any child left with no remaining external subscriber.
// force defaults to false, matching the refuse-while-subscribed default
// (§4.1's "destroy(handle, force?)").
func Destroy(h Handle, force ...bool) bool {
	d, ok := h.(destroyer)
	if !ok {
		return false
	}
	f := false
	if len(force) > 0 {
		f = force[0]
	}
	return d.Destroy(f)
}

// Catch registers fn as h's exception handler, returning an unregister
// token (§4.1's "catch(handle, fn)"). fn only sees StateChanges whose
// Error field is set.
func Catch(h Handle, fn func(StateChange)) (unregister func()) {
	_, unregister = h.Meta().AddExceptionHandler(fn)
	return unregister
}

// Configure returns h's immutable configuration bundle, set once at
// construction (§3's Metadata.config).
func Configure(h Handle) Config {
	return h.Meta().Config
}

// Configs returns the named configuration presets the factory variants
// build on, for callers assembling a custom Config by starting from one
// of these and overriding a field.
func Configs() map[string]Config {
	return map[string]Config{
		"default":   engine.DefaultConfig(),
		"flat":      engine.FlatConfig(),
		"raw":       engine.RawConfig(),
		"immutable": engine.ImmutableConfig(),
	}
}

func contractViolation(h Handle, op string) error {
	rec := diag.CaptureViolation(fmt.Sprintf("%s: unsupported on %T", op, h), h.HandleID(), nil)
	return rec
}

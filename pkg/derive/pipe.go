// Package derive implements spec.md §4.6: pipes, two-way bindings, and
// the four ref flavors, all built atop pkg/engine's broadcaster and
// observer core rather than introducing a second notification
// mechanism.
package derive

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Sink is the "style-like" write-target spec.md §4.6 allows as a pipe
// destination: any object with settable keys. A *engine.RecordHandle
// satisfies this directly; a plain map[string]any does not (it carries
// no metadata to patch through without racing the caller's own use of
// the map), so piping into a raw map is not supported — wrap it as a
// RecordHandle first.
type Sink interface {
	Assign(patch map[string]any)
}

// Pipe subscribes to source and, on every change, writes
// transform(source.Snapshot()) into sink via Assign. If transform is
// nil, the snapshot itself is used when source is record-shaped
// (map[string]any); a non-record source with no transform is a
// contract violation, since there is then no way to turn its snapshot
// into a patch.
func Pipe(source engine.Handle, sink Sink, transform func(any) map[string]any) func() {
	apply := func() {
		snap := source.Snapshot()
		var patch map[string]any
		if transform != nil {
			patch = transform(snap)
		} else if m, ok := snap.(map[string]any); ok {
			patch = m
		} else {
			diag.CaptureContractViolation("derive.Pipe: source snapshot is not map-shaped and no transform was supplied")
			return
		}
		sink.Assign(patch)
	}

	unsubscribe := engine.Subscribe(source.Meta(), func(c engine.StateChange) {
		apply()
	}, false, true)

	return unsubscribe
}

// Bind installs a two-way link between a single scalar field on
// source and one on target, with loop suppression by value-equality
// (spec.md §4.6's `binding`): a change on either side writes through to
// the other, but a write that reproduces the value already present on
// the writing side's peer does not bounce back.
func Bind(source engine.Handle, sourceKey string, target engine.Handle, targetKey string) func() {
	getter := func(h engine.Handle, key string) any {
		switch t := h.(type) {
		case *engine.RecordHandle:
			return t.Get(key)
		default:
			diag.CaptureContractViolation(fmt.Sprintf("derive.Bind: unsupported handle kind for key %q", key))
			return nil
		}
	}
	setter := func(h engine.Handle, key string, value any) {
		switch t := h.(type) {
		case *engine.RecordHandle:
			t.Set(key, value)
		default:
			diag.CaptureContractViolation(fmt.Sprintf("derive.Bind: unsupported handle kind for key %q", key))
		}
	}

	var syncing bool

	unsubSource := engine.Subscribe(source.Meta(), func(c engine.StateChange) {
		if syncing {
			return
		}
		v := getter(source, sourceKey)
		if sameScalar(v, getter(target, targetKey)) {
			return
		}
		syncing = true
		setter(target, targetKey, v)
		syncing = false
	}, false, false)

	unsubTarget := engine.Subscribe(target.Meta(), func(c engine.StateChange) {
		if syncing {
			return
		}
		v := getter(target, targetKey)
		if sameScalar(v, getter(source, sourceKey)) {
			return
		}
		syncing = true
		setter(source, sourceKey, v)
		syncing = false
	}, false, false)

	return func() {
		unsubSource()
		unsubTarget()
	}
}

func sameScalar(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

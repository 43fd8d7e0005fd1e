// Package reactor is the public facade SPEC_FULL.md §6 names as the
// module's external interface: every package under pkg/ implements one
// layer of the engine (registry, broadcaster, interceptors, relational
// graph, observer core, derivation, history, context, diagnostics); this
// package wires them into the handful of top-level functions a client
// actually calls — wrap/flat/raw/immutable/ordered/model, the
// get/snapshot/has/find/assign/remove/clear/destroy companion
// operations, and observer/subscription construction.
//
// Grounded on the teacher's pkg/bubbly package, which plays the same
// role for bubblyui's Ref/Computed/State surface: a thin root package
// that re-exports and composes pkg/core's primitives rather than
// reimplementing them.
package reactor

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// Handle re-exports engine.Handle so callers rarely need to import
// pkg/engine directly for the common case.
type Handle = engine.Handle

// Config re-exports engine.Config and its named presets.
type Config = engine.Config

// StateChange re-exports engine.StateChange.
type StateChange = engine.StateChange

// SchemaFunc re-exports the schema-predicate contract (§4.6/§6).
type SchemaFunc = engine.SchemaFunc

// Wrap is the default factory variant (§4.1): recursive, cloned,
// observable reactivity with no schema. init must be one of the two
// dynamically-detectable shape families (map[string]any or []any) to
// become a Handle; anything else is returned unchanged alongside a
// diagnostic, matching the factory's documented "never panics on
// non-linkable input" contract. A value that is already a Handle is
// returned as-is (idempotent re-wrap, invariant 1).
func Wrap(init any, cfg ...Config) any {
	return wrapWith(init, resolveConfig(cfg, engine.DefaultConfig()), nil)
}

// Flat wraps only the root value; nested linkable values stay raw until
// a later recursive rule applies to them on access (§4.1's flat variant).
func Flat(init any, cfg ...Config) any {
	return wrapWith(init, resolveConfig(cfg, engine.FlatConfig()), nil)
}

// Raw takes ownership of init's own backing storage instead of copying
// it into a fresh map/slice before wrapping (§4.1's raw variant) — the
// default variant clones so the caller's original value is left
// untouched by the handle's own mutations.
func Raw(init any, cfg ...Config) any {
	return wrapWith(init, resolveConfig(cfg, engine.RawConfig()), nil)
}

// Immutable wraps init as the default variant but rejects every write
// with a violation diagnostic, leaving the underlying value unchanged
// (§4.1's immutable variant, invariant 6).
func Immutable(init any, cfg ...Config) any {
	return wrapWith(init, resolveConfig(cfg, engine.ImmutableConfig()), nil)
}

// Ordered wraps a []any as a sequence that re-sorts after every
// structural mutation using less, emitting a trailing "sort" event only
// when the order actually changed (Open Question 1, DESIGN.md).
func Ordered(init []any, less engine.LessFunc, cfg ...Config) *engine.SequenceHandle {
	return engine.NewOrderedSequence(init, resolveConfig(cfg, engine.DefaultConfig()), nil, less)
}

// Model wraps init with schema attached: every write routes through the
// predicate before being applied (§4.1's model variant, §4.6).
func Model(schema SchemaFunc, init any, cfg ...Config) any {
	return wrapWith(init, resolveConfig(cfg, engine.DefaultConfig()), schema)
}

func resolveConfig(cfg []Config, fallback Config) Config {
	if len(cfg) > 0 {
		return cfg[0]
	}
	return fallback
}

// wrapWith is the shared dispatch every factory variant above funnels
// through: resolve an already-reactive value first (invariant 1), then
// switch on the two auto-detectable shape families.
func wrapWith(init any, cfg Config, schema SchemaFunc) any {
	if h, ok := init.(Handle); ok {
		return h
	}
	switch v := init.(type) {
	case map[string]any:
		return engine.NewRecord(v, cfg, schema)
	case []any:
		return engine.NewSequence(v, cfg, schema)
	default:
		diag.CaptureWarning(fmt.Sprintf("wrap: %T is not a linkable shape, returning unchanged", init), "")
		return init
	}
}

// Package schema adapts github.com/google/jsonschema-go into spec.md
// §6's schema-integration contract: "any object with a parse(value) →
// {success, error?, issues?} contract may be supplied; the core invokes
// it on every write to validated handles." pkg/engine already narrows
// that contract to a plain predicate function (engine.SchemaFunc,
// func(value any) (ok bool, issues []string)) rather than an object
// with a parse method, since Go favors a function value over a
// single-method interface here; this package's job is producing one of
// those functions from a JSON Schema document or from a Go type via
// reflection.
package schema

import (
	"fmt"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/relaycore/reactor/pkg/engine"
)

// FromSchema resolves s once and returns an engine.SchemaFunc that
// validates every write against it. Resolving once at construction
// avoids re-resolving $ref references on every single write.
func FromSchema(s *jsonschema.Schema) (engine.SchemaFunc, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema: resolving schema: %w", err)
	}
	return func(value any) (bool, []string) {
		if err := resolved.Validate(value); err != nil {
			return false, []string{err.Error()}
		}
		return true, nil
	}, nil
}

// For generates a schema from a Go type T via reflection and adapts it
// the same way as FromSchema, for call sites that want a type-driven
// schema instead of a hand-authored JSON Schema document.
func For[T any]() (engine.SchemaFunc, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("schema: generating schema for %T: %w", *new(T), err)
	}
	return FromSchema(s)
}

// Package codec implements spec.md §6's persisted-state layer: pluggable
// snapshot (de)serialization plus a debounced, versioned on-disk store
// for hosts that want a reactive handle to survive process restarts.
// Grounded on the teacher's pkg/bubbly/composables/storage.go Storage
// interface (Load/Save over a byte blob, FileStorage's os.ReadFile/
// WriteFile pair), generalized from one fixed encoding to a pluggable
// SnapshotCodec so the same PersistedStore works with any of the three
// encodings the example pack brings in.
package codec

import (
	"encoding/json"
	"fmt"

	goyaml "github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotCodec (de)serializes a handle's Snapshot() value to and from
// bytes. Any object satisfying this contract may be supplied to
// PersistedStore; the three below are the encodings the example
// corpus's own dependency set already brings in.
type SnapshotCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// JSON is the default codec (spec.md §6: "a plain JSON snapshot").
// encoding/json is used directly rather than a third-party encoder: the
// spec names JSON specifically as the illustrative wire format, and no
// example repo in the corpus reaches for a third-party JSON library —
// see DESIGN.md's "Persisted state layer" entry.
var JSON SnapshotCodec = jsonCodec{}

// YAML codec, backed by goccy/go-yaml.
var YAML SnapshotCodec = yamlCodec{}

// Msgpack codec, backed by vmihailenco/msgpack — the compact binary
// option for hosts that don't need a human-readable snapshot file.
var Msgpack SnapshotCodec = msgpackCodec{}

type jsonCodec struct{}

func (jsonCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: json decode: %w", err)
	}
	return nil
}

type yamlCodec struct{}

func (yamlCodec) Encode(v any) ([]byte, error) { return goyaml.Marshal(v) }
func (yamlCodec) Decode(data []byte, out any) error {
	if err := goyaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: yaml decode: %w", err)
	}
	return nil
}

type msgpackCodec struct{}

func (msgpackCodec) Encode(v any) ([]byte, error) { return msgpack.Marshal(v) }
func (msgpackCodec) Decode(data []byte, out any) error {
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: msgpack decode: %w", err)
	}
	return nil
}

package codec

import (
	"testing"
	"time"

	"github.com/relaycore/reactor/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_RoundTripsAMap(t *testing.T) {
	data, err := JSON.Encode(map[string]any{"a": 1.0, "b": "x"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, JSON.Decode(data, &out))
	assert.Equal(t, 1.0, out["a"])
	assert.Equal(t, "x", out["b"])
}

func TestYAMLCodec_RoundTripsAMap(t *testing.T) {
	data, err := YAML.Encode(map[string]any{"a": 1})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, YAML.Decode(data, &out))
	assert.EqualValues(t, 1, out["a"])
}

func TestMsgpackCodec_RoundTripsAMap(t *testing.T) {
	data, err := Msgpack.Encode(map[string]any{"a": 1})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, Msgpack.Decode(data, &out))
	assert.EqualValues(t, 1, out["a"])
}

func TestKey_MatchesPersistedLayoutFormat(t *testing.T) {
	assert.Equal(t, "reactor-session://counter@1", Key("reactor", "session", "counter", 1))
}

func TestPersistedStore_LoadsExistingSnapshotAtConstruction(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)

	seed := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	seeding := NewPersistedStore(seed, storage, Options{Prefix: "app", Scope: "test", Name: "counter", Debounce: 5 * time.Millisecond})
	seed.Set("count", 42)
	seeding.Flush()

	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	NewPersistedStore(rec, storage, Options{Prefix: "app", Scope: "test", Name: "counter", Debounce: 5 * time.Millisecond})
	assert.EqualValues(t, 42, rec.Get("count"))
}

func TestPersistedStore_DebouncedMutationIsSavedAndReloadable(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)

	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	ps := NewPersistedStore(rec, storage, Options{Prefix: "app", Scope: "test", Name: "seq", Debounce: 5 * time.Millisecond})
	defer ps.Destroy()

	rec.Set("count", 7)
	time.Sleep(30 * time.Millisecond)

	data, err := storage.Load(Key("app", "test", "seq", 1))
	require.NoError(t, err)
	assert.Contains(t, string(data), "7")
}

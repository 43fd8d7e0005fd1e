package derive

import (
	"testing"

	"github.com/relaycore/reactor/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_WritesTransformedSnapshotIntoSink(t *testing.T) {
	source := engine.NewRecord(map[string]any{"celsius": 0}, engine.DefaultConfig(), nil)
	sink := engine.NewRecord(map[string]any{}, engine.DefaultConfig(), nil)

	dispose := Pipe(source, sink, func(snap any) map[string]any {
		m := snap.(map[string]any)
		return map[string]any{"fahrenheit": m["celsius"].(int)*9/5 + 32}
	})
	defer dispose()

	require.Equal(t, 32, sink.Get("fahrenheit"))

	source.Set("celsius", 100)
	assert.Equal(t, 212, sink.Get("fahrenheit"))
}

func TestPipe_DisposeStopsRelaying(t *testing.T) {
	source := engine.NewRecord(map[string]any{"a": 1}, engine.DefaultConfig(), nil)
	sink := engine.NewRecord(map[string]any{}, engine.DefaultConfig(), nil)

	dispose := Pipe(source, sink, func(snap any) map[string]any { return snap.(map[string]any) })
	dispose()

	source.Set("a", 2)
	assert.Equal(t, 1, sink.Get("a"))
}

func TestBind_TwoWaySyncWithLoopSuppression(t *testing.T) {
	a := engine.NewRecord(map[string]any{"n": "x"}, engine.DefaultConfig(), nil)
	b := engine.NewRecord(map[string]any{"n": "x"}, engine.DefaultConfig(), nil)

	dispose := Bind(a, "n", b, "n")
	defer dispose()

	a.Set("n", "y")
	assert.Equal(t, "y", b.Get("n"))

	b.Set("n", "z")
	assert.Equal(t, "z", a.Get("n"))
}

func TestBind_UnchangedValueDoesNotBounce(t *testing.T) {
	a := engine.NewRecord(map[string]any{"n": "x"}, engine.DefaultConfig(), nil)
	b := engine.NewRecord(map[string]any{"n": "x"}, engine.DefaultConfig(), nil)

	dispose := Bind(a, "n", b, "n")
	defer dispose()

	events := 0
	unsub := engine.Subscribe(b.Meta(), func(c engine.StateChange) { events++ }, false, false)
	defer unsub()

	a.Set("n", "x")
	assert.Equal(t, 0, events, "setting the already-equal value must not propagate")
}

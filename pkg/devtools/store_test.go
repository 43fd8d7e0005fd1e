package devtools

import (
	"testing"

	"github.com/relaycore/reactor/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordsInitAndSetAgainstRegisteredReceiver(t *testing.T) {
	dt := New()
	_, unregister := dt.GetStore().attach()
	defer unregister()

	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	rec.Set("count", 1)

	events := dt.GetStore().Events(rec.HandleID(), 0)
	require.NotEmpty(t, events)
	kinds := make([]string, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, "init")
	assert.Contains(t, kinds, "set")
}

func TestStore_AllHandlesTracksRegisteredShape(t *testing.T) {
	dt := New()
	_, unregister := dt.GetStore().attach()
	defer unregister()

	rec := engine.NewRecord(map[string]any{"a": 1}, engine.DefaultConfig(), nil)

	found := false
	for _, h := range dt.GetStore().AllHandles() {
		if h.HandleID == rec.HandleID() {
			found = true
			assert.Equal(t, engine.ShapeRecord, h.Kind)
		}
	}
	assert.True(t, found)
}

func TestStore_SnapshotResolvesCurrentValue(t *testing.T) {
	dt := New()
	_, unregister := dt.GetStore().attach()
	defer unregister()

	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	rec.Set("count", 9)

	snap, ok := dt.GetStore().Snapshot(rec.HandleID())
	require.True(t, ok)
	m, ok := snap.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 9, m["count"])
}

func TestStore_ClearDiscardsEventsButKeepsHandleRegistrations(t *testing.T) {
	dt := New()
	_, unregister := dt.GetStore().attach()
	defer unregister()

	rec := engine.NewRecord(map[string]any{"a": 1}, engine.DefaultConfig(), nil)
	rec.Set("a", 2)

	n := dt.GetStore().Clear()
	assert.Positive(t, n)
	assert.Empty(t, dt.GetStore().Events(rec.HandleID(), 0))
	assert.NotEmpty(t, dt.GetStore().AllHandles())
}

func TestEnableDisable_TogglesSingletonCollection(t *testing.T) {
	Disable()
	assert.False(t, IsEnabled())

	Enable()
	assert.True(t, IsEnabled())

	Disable()
	assert.False(t, IsEnabled())
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_TracksReadDuringRun(t *testing.T) {
	h := NewRecord(map[string]any{"count": 1}, DefaultConfig(), nil)

	changes := 0
	obs := CreateObserver(func(c StateChange) { changes++ }, nil)

	obs.Run(func() any {
		return h.Get("count")
	})

	require.True(t, obs.Tracks(h.HandleID(), "count"))

	h.Set("count", 2)
	assert.Equal(t, 1, changes)

	h.Set("unrelated-key-does-not-exist", "x")
	assert.Equal(t, 1, changes, "a key never read by the observer must not notify it")
}

func TestObserver_OnTrackFiresOnceOnFirstTouch(t *testing.T) {
	h := NewRecord(map[string]any{"a": 1}, DefaultConfig(), nil)

	touches := 0
	obs := CreateObserver(func(c StateChange) {}, func(handleID, key string) { touches++ })

	obs.Run(func() any {
		h.Get("a")
		h.Get("a")
		return nil
	})

	assert.Equal(t, 1, touches)
}

func TestObserver_DestroyDetachesFromAllHandles(t *testing.T) {
	h := NewRecord(map[string]any{"a": 1}, DefaultConfig(), nil)
	obs := CreateObserver(func(c StateChange) {}, nil)

	obs.Run(func() any { return h.Get("a") })
	require.True(t, obs.Tracks(h.HandleID(), "a"))

	obs.Destroy()

	changes := 0
	obs2Callback := func(c StateChange) { changes++ }
	_ = obs2Callback
	h.Set("a", 2)
	assert.False(t, obs.Tracks(h.HandleID(), "a"))
}

func TestObserver_StructuralChangeNotifiesArrayMutationTracker(t *testing.T) {
	h := NewSequence([]any{1, 2}, DefaultConfig(), nil)

	changes := 0
	obs := CreateObserver(func(c StateChange) { changes++ }, nil)
	obs.Run(func() any { return h.Len() })

	h.Push(3)
	assert.Equal(t, 1, changes)
}

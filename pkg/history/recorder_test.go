package history

import (
	"testing"
	"time"

	"github.com/relaycore/reactor/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_BackwardUndoesMostRecentSet(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	h := New(rec, Options{Debounce: 5 * time.Millisecond, MaxHistory: 10})
	defer h.Destroy()

	rec.Set("count", 1)
	time.Sleep(20 * time.Millisecond)

	require.True(t, h.CanBackward())
	assert.True(t, h.Backward())
	assert.Equal(t, 0, rec.Get("count"))
	assert.True(t, h.CanForward())
}

func TestRecorder_ForwardRedoesUndoneSet(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	h := New(rec, Options{Debounce: 5 * time.Millisecond, MaxHistory: 10})
	defer h.Destroy()

	rec.Set("count", 1)
	time.Sleep(20 * time.Millisecond)
	h.Backward()
	assert.True(t, h.Forward())
	assert.Equal(t, 1, rec.Get("count"))
}

func TestRecorder_MergesRapidSetsOnSameKeyIntoOneEntry(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"count": 0}, engine.DefaultConfig(), nil)
	h := New(rec, Options{Debounce: 30 * time.Millisecond, MaxHistory: 10})
	defer h.Destroy()

	rec.Set("count", 1)
	rec.Set("count", 2)
	rec.Set("count", 3)
	time.Sleep(60 * time.Millisecond)

	assert.Len(t, h.BackwardList(), 1)
	h.Backward()
	assert.Equal(t, 0, rec.Get("count"), "merged entry must undo straight back to the pre-burst value")
}

func TestRecorder_MaxHistoryEvictsOldestEntry(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"a": 0, "b": 0}, engine.DefaultConfig(), nil)
	h := New(rec, Options{Debounce: 5 * time.Millisecond, MaxHistory: 1})
	defer h.Destroy()

	rec.Set("a", 1)
	time.Sleep(20 * time.Millisecond)
	rec.Set("b", 1)
	time.Sleep(20 * time.Millisecond)

	assert.Len(t, h.BackwardList(), 1)
	h.Backward()
	assert.Equal(t, 0, rec.Get("b"))
	assert.Equal(t, 1, rec.Get("a"), "the evicted entry for a is no longer undoable")
}

func TestRecorder_SequenceSpliceUndoRestoresRemovedItems(t *testing.T) {
	seq := engine.NewSequence([]any{1, 2, 3}, engine.DefaultConfig(), nil)
	h := New(seq, Options{Debounce: 5 * time.Millisecond, MaxHistory: 10})
	defer h.Destroy()

	seq.Splice(1, 1, 99)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []any{1, 99, 3}, seq.Snapshot())

	h.Backward()
	assert.Equal(t, []any{1, 2, 3}, seq.Snapshot())
}

func TestRecorder_ResettableReplaysChangeLogInReverse(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"x": 0}, engine.DefaultConfig(), nil)
	h := New(rec, Options{Debounce: 5 * time.Millisecond, MaxHistory: 10, Resettable: true})
	defer h.Destroy()

	rec.Set("x", 1)
	time.Sleep(20 * time.Millisecond)
	rec.Set("x", 2)
	time.Sleep(20 * time.Millisecond)

	require.True(t, h.CanReset())
	assert.True(t, h.Reset())
	assert.Equal(t, 0, rec.Get("x"))
	assert.False(t, h.CanBackward())
}

func TestUndoable_ReversesEveryMutationMadeInsideFn(t *testing.T) {
	rec := engine.NewRecord(map[string]any{"a": 1, "b": 2}, engine.DefaultConfig(), nil)

	undo, clear := Undoable(func() {
		rec.Set("a", 10)
		rec.Set("b", 20)
	})
	defer clear()

	assert.Equal(t, 10, rec.Get("a"))
	assert.Equal(t, 20, rec.Get("b"))

	undo()
	assert.Equal(t, 1, rec.Get("a"))
	assert.Equal(t, 2, rec.Get("b"))
}

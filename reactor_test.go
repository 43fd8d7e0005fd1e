package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/reactor/pkg/engine"
	"github.com/relaycore/reactor/pkg/history"
)

// Scenario 1 (spec.md §8): Counter.
func TestScenario_Counter(t *testing.T) {
	s := Wrap(map[string]any{"count": 0}).(*engine.RecordHandle)

	var calls []engine.ChangeType
	unsubscribe := Subscribe(s, func(c StateChange) { calls = append(calls, c.Type) })

	s.Set("count", 1)
	s.Set("count", 2)

	require.Len(t, calls, 3)
	assert.Equal(t, engine.ChangeInit, calls[0])
	assert.Equal(t, engine.ChangeSet, calls[1])
	assert.Equal(t, engine.ChangeSet, calls[2])

	unsubscribe()
	s.Set("count", 3)
	assert.Len(t, calls, 3, "no further notifications after unsubscribe")
	assert.Equal(t, 3, s.Get("count"), "the assignment still mutates the underlying")
}

// Scenario 2 (spec.md §8): Nested update.
func TestScenario_NestedUpdate(t *testing.T) {
	s := Wrap(map[string]any{"user": map[string]any{"name": "J"}}).(*engine.RecordHandle)

	var last StateChange
	Subscribe(s, func(c StateChange) {
		if c.Type == engine.ChangeSet {
			last = c
		}
	})

	user := s.Get("user").(*engine.RecordHandle)
	user.Set("name", "K")

	assert.Equal(t, engine.ChangeSet, last.Type)
	assert.Equal(t, []string{"user", "name"}, last.Keys)
	assert.Equal(t, "J", last.Prev)
	assert.Equal(t, "K", last.Value)
}

// Scenario 3 (spec.md §8): Sequence splice, with undo via its inverse.
func TestScenario_SequenceSplice(t *testing.T) {
	a := Wrap([]any{1, 2, 3}).(*engine.SequenceHandle)

	var last StateChange
	Subscribe(a, func(c StateChange) {
		if c.Type == engine.ChangeSplice {
			last = c
		}
	})

	removed := a.Splice(1, 1, 9)
	assert.Equal(t, []any{2}, removed)
	assert.Equal(t, engine.ChangeSplice, last.Type)
	assert.Equal(t, []any{1, 9, 3}, a.Raw())

	require.NoError(t, a.ApplyInverse(last))
	assert.Equal(t, []any{1, 2, 3}, a.Raw())
}

// Scenario 4 (spec.md §8): Cycle.
func TestScenario_Cycle(t *testing.T) {
	o := map[string]any{"n": "a"}
	o["self"] = o

	s := Wrap(o).(*engine.RecordHandle)

	self1 := s.Get("self").(*engine.RecordHandle)
	assert.Equal(t, s.HandleID(), self1.HandleID())

	self3 := self1.Get("self").(*engine.RecordHandle).Get("self").(*engine.RecordHandle)
	assert.Equal(t, s.HandleID(), self3.HandleID())

	var callCount int
	Subscribe(s, func(c StateChange) { callCount++ })
	s.Set("n", "b")
	assert.Equal(t, 2, callCount, "one init event plus one set event")
}

// Scenario 5 (spec.md §8): History debounce — multiple sets to the same
// key within the debounce window collapse into one backward step.
func TestScenario_HistoryDebounce(t *testing.T) {
	s := Wrap(map[string]any{"x": 0}).(*engine.RecordHandle)
	rec := history.New(s, history.Options{Debounce: 50 * time.Millisecond, MaxHistory: 100})
	defer rec.Destroy()

	s.Set("x", 1)
	s.Set("x", 2)
	s.Set("x", 3)
	assert.Equal(t, 3, s.Get("x"))

	require.Eventually(t, rec.CanBackward, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.BackwardList(), 1)
	require.True(t, rec.Backward())
	assert.Equal(t, 0, s.Get("x"))
}

// Scenario 6 (spec.md §8): Immutable violation.
func TestScenario_ImmutableViolation(t *testing.T) {
	s := Wrap(map[string]any{"x": 1}, engine.ImmutableConfig()).(*engine.RecordHandle)
	s.Set("x", 2)
	assert.Equal(t, 1, s.Get("x"))
}

func TestWrap_NonLinkableReturnsUnchanged(t *testing.T) {
	got := Wrap(42)
	assert.Equal(t, 42, got)
}

func TestWrap_ReentrantWrapReturnsExistingHandle(t *testing.T) {
	init := map[string]any{"a": 1}
	h1 := Wrap(init).(*engine.RecordHandle)
	h2 := Wrap(init).(*engine.RecordHandle)
	assert.Equal(t, h1.HandleID(), h2.HandleID())

	found, ok := Find(init)
	require.True(t, ok)
	assert.Equal(t, h1.HandleID(), found.HandleID())
	assert.True(t, Has(init))
}

func TestAssignRemoveClear_RecordShape(t *testing.T) {
	s := Wrap(map[string]any{"a": 1, "b": 2}).(*engine.RecordHandle)

	require.NoError(t, Assign(s, map[string]any{"c": 3}))
	assert.Equal(t, 3, s.Get("c"))

	require.NoError(t, Remove(s, "a"))
	assert.False(t, s.Has("a"))

	require.NoError(t, Clear(s))
	assert.False(t, s.Has("b"))
	assert.False(t, s.Has("c"))
}

func TestAssign_RejectsNonRecordShape(t *testing.T) {
	a := Wrap([]any{1, 2}).(*engine.SequenceHandle)
	err := Assign(a, map[string]any{"x": 1})
	assert.Error(t, err)
}

func TestDestroy_RefusesWhileExternalSubscribersRemain(t *testing.T) {
	s := Wrap(map[string]any{"x": 1}).(*engine.RecordHandle)
	Subscribe(s, func(StateChange) {})
	assert.False(t, Destroy(s))
	assert.True(t, Destroy(s, true))
}

func TestConfigureAndConfigs(t *testing.T) {
	s := Wrap(map[string]any{"x": 1}, engine.ImmutableConfig()).(*engine.RecordHandle)
	assert.True(t, Configure(s).Immutable)

	presets := Configs()
	assert.True(t, presets["immutable"].Immutable)
	assert.False(t, presets["default"].Immutable)
}

func TestCreateObserver_TracksReadsDuringRun(t *testing.T) {
	s := Wrap(map[string]any{"x": 1}).(*engine.RecordHandle)

	var notified bool
	obs := CreateObserver(func(StateChange) { notified = true }, nil)
	obs.Run(func() any { return s.Get("x") })

	s.Set("x", 2)
	assert.True(t, notified)
}

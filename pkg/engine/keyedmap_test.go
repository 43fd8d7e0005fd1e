package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapHandle_SetGetDelete(t *testing.T) {
	h := NewMapHandle(map[int]string{1: "a"}, DefaultConfig(), nil)

	var got StateChange
	unsub := Subscribe(h.Meta(), func(c StateChange) { got = c }, false, false)
	defer unsub()

	h.Set(2, "b")
	assert.Equal(t, ChangeSet, got.Type)
	v, ok := h.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	h.Delete(1)
	assert.Equal(t, ChangeDelete, got.Type)
	assert.Equal(t, "a", got.Prev)
	assert.False(t, h.Has(1))
}

func TestMapHandle_SetUnchangedIsNoOp(t *testing.T) {
	h := NewMapHandle(map[string]int{"x": 1}, DefaultConfig(), nil)
	fired := false
	unsub := Subscribe(h.Meta(), func(c StateChange) { fired = true }, false, false)
	defer unsub()

	h.Set("x", 1)
	assert.False(t, fired)
}

func TestMapHandle_ClearEmitsFullPriorEntries(t *testing.T) {
	h := NewMapHandle(map[string]int{"a": 1, "b": 2}, DefaultConfig(), nil)

	var got StateChange
	unsub := Subscribe(h.Meta(), func(c StateChange) { got = c }, false, false)
	defer unsub()

	h.Clear()

	require.Equal(t, ChangeClear, got.Type)
	prev, ok := got.Prev.(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 2, len(prev))
	assert.Equal(t, 0, h.Len())
}

func TestMapHandle_ImmutableRejectsWrite(t *testing.T) {
	h := NewMapHandle(map[string]int{"a": 1}, ImmutableConfig(), nil)
	h.Set("a", 2)
	v, _ := h.Get("a")
	assert.Equal(t, 1, v)
}

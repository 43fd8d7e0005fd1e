package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetHandle_AddDelete(t *testing.T) {
	h := NewSetHandle([]string{"a", "b"}, DefaultConfig(), nil)

	var got StateChange
	unsub := Subscribe(h.Meta(), func(c StateChange) { got = c }, false, false)
	defer unsub()

	h.Add("c")
	assert.Equal(t, ChangeAdd, got.Type)
	assert.Equal(t, "c", got.Value)
	assert.True(t, h.Has("c"))

	h.Delete("a")
	assert.Equal(t, ChangeDelete, got.Type)
	assert.Equal(t, "a", got.Prev)
	assert.False(t, h.Has("a"))
}

func TestSetHandle_AddExistingIsNoOp(t *testing.T) {
	h := NewSetHandle([]string{"a"}, DefaultConfig(), nil)
	fired := false
	unsub := Subscribe(h.Meta(), func(c StateChange) { fired = true }, false, false)
	defer unsub()

	h.Add("a")
	assert.False(t, fired)
}

func TestSetHandle_ClearEmitsFullMemberList(t *testing.T) {
	h := NewSetHandle([]int{1, 2, 3}, DefaultConfig(), nil)

	var got StateChange
	unsub := Subscribe(h.Meta(), func(c StateChange) { got = c }, false, false)
	defer unsub()

	h.Clear()

	require.Equal(t, ChangeClear, got.Type)
	prev, ok := got.Prev.([]int)
	require.True(t, ok)
	assert.Len(t, prev, 3)
	assert.Equal(t, 0, h.Len())
}

func TestSetHandle_ImmutableRejectsWrite(t *testing.T) {
	h := NewSetHandle([]string{"a"}, ImmutableConfig(), nil)
	h.Add("b")
	assert.False(t, h.Has("b"))
}

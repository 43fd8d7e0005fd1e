package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FindResolvesExistingHandle(t *testing.T) {
	reg := NewRegistry()
	saved := Default
	Default = reg
	defer func() { Default = saved }()

	init := map[string]any{"a": 1}
	h := NewRecord(init, DefaultConfig(), nil)

	found, ok := reg.Find(init)
	require.True(t, ok)
	assert.Equal(t, h.HandleID(), found.HandleID())
}

func TestRegistry_WrappingSameUnderlyingTwiceReturnsSameHandle(t *testing.T) {
	reg := NewRegistry()
	saved := Default
	Default = reg
	defer func() { Default = saved }()

	init := map[string]any{"a": 1}
	h1 := NewRecord(init, DefaultConfig(), nil)
	h2 := NewRecord(init, DefaultConfig(), nil)

	assert.Equal(t, h1.HandleID(), h2.HandleID())
}

func TestRegistry_HasDetectsHandleAndRawValue(t *testing.T) {
	reg := NewRegistry()
	saved := Default
	Default = reg
	defer func() { Default = saved }()

	init := map[string]any{"a": 1}
	h := NewRecord(init, DefaultConfig(), nil)

	assert.True(t, reg.Has(h))
	assert.True(t, reg.Has(init))
	assert.False(t, reg.Has(map[string]any{"a": 1}))
}

func TestRegistry_UnregisterRemovesBothIndexes(t *testing.T) {
	reg := NewRegistry()
	saved := Default
	Default = reg
	defer func() { Default = saved }()

	init := map[string]any{"a": 1}
	h := NewRecord(init, DefaultConfig(), nil)

	reg.Unregister(h.HandleID())

	_, ok := reg.Lookup(h.HandleID())
	assert.False(t, ok)
	_, ok = reg.Find(init)
	assert.False(t, ok)
}

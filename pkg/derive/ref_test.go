package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutableRef_SetNotifiesSubscribers(t *testing.T) {
	r := NewMutableRef(1)

	var newVal, oldVal int
	unsub := r.Subscribe(func(n, o int) { newVal, oldVal = n, o })
	defer unsub()

	r.Set(2)
	assert.Equal(t, 2, newVal)
	assert.Equal(t, 1, oldVal)
	assert.Equal(t, 2, r.Get())
}

func TestMutableRef_SetUnchangedIsNoOp(t *testing.T) {
	r := NewMutableRef(1)
	fired := false
	unsub := r.Subscribe(func(n, o int) { fired = true })
	defer unsub()

	r.Set(1)
	assert.False(t, fired)
}

func TestImmutableRef_SetDiagnosesAndLeavesValueUntouched(t *testing.T) {
	r := NewImmutableRef(42)
	r.Set(99)
	assert.Equal(t, 42, r.Get())
}

func TestDerivedRef_RecomputesWhenDependencyChanges(t *testing.T) {
	base := NewMutableRef(2)
	doubled := NewDerivedRef(func() int { return base.Get() * 2 })
	defer doubled.Destroy()

	assert.Equal(t, 4, doubled.Get())

	var newVal int
	unsub := doubled.Subscribe(func(n, o int) { newVal = n })
	defer unsub()

	base.Set(5)
	assert.Equal(t, 10, newVal)
	assert.Equal(t, 10, doubled.Get())
}

func TestVariableRef_SetRoutesThroughCallback(t *testing.T) {
	celsius := 0.0
	r := NewVariableRef(
		func() float64 { return celsius*9/5 + 32 },
		func(f float64) { celsius = (f - 32) * 5 / 9 },
	)

	require.Equal(t, 32.0, r.Get())

	var newVal float64
	unsub := r.Subscribe(func(n, o float64) { newVal = n })
	defer unsub()

	r.Set(212)
	assert.InDelta(t, 100.0, celsius, 0.0001)
	assert.InDelta(t, 212.0, newVal, 0.0001)
}

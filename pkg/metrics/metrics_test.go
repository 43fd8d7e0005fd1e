package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpRecorder_ImplementsInterface(t *testing.T) {
	var _ Recorder = NoOpRecorder{}
}

func TestNoOpRecorder_AllMethodsSafe(t *testing.T) {
	noop := NoOpRecorder{}

	assert.NotPanics(t, func() { noop.RecordHandleCreation("record") })
	assert.NotPanics(t, func() { noop.RecordMutation("set") })
	assert.NotPanics(t, func() { noop.RecordObserverNotification() })
	assert.NotPanics(t, func() { noop.RecordRelationDepth(3) })
	assert.NotPanics(t, func() { noop.RecordHistoryFlush(10 * time.Millisecond) })
}

func TestGlobalRecorder_DefaultIsNoOp(t *testing.T) {
	SetGlobalRecorder(nil)

	r := GetGlobalRecorder()
	require.NotNil(t, r)
	_, ok := r.(NoOpRecorder)
	assert.True(t, ok)
}

type mockRecorder struct {
	mutations int
}

func (m *mockRecorder) RecordHandleCreation(shape string) {}
func (m *mockRecorder) RecordMutation(changeType string)  { m.mutations++ }
func (m *mockRecorder) RecordObserverNotification()       {}
func (m *mockRecorder) RecordRelationDepth(depth int)     {}
func (m *mockRecorder) RecordHistoryFlush(d time.Duration) {}

func TestGlobalRecorder_SetAndGet(t *testing.T) {
	defer SetGlobalRecorder(nil)

	mock := &mockRecorder{}
	SetGlobalRecorder(mock)

	r := GetGlobalRecorder()
	retrieved, ok := r.(*mockRecorder)
	require.True(t, ok)
	retrieved.RecordMutation("set")
	assert.Equal(t, 1, mock.mutations)
}

func TestGlobalRecorder_ThreadSafe(t *testing.T) {
	defer SetGlobalRecorder(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetGlobalRecorder(&mockRecorder{})
			GetGlobalRecorder().RecordMutation("set")
		}()
	}
	wg.Wait()
}

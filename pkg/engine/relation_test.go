package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink_RelaysChildEventWithPrefixedKey(t *testing.T) {
	parent := NewRecord(map[string]any{}, DefaultConfig(), nil)
	child := NewRecord(map[string]any{"n": "a"}, DefaultConfig(), nil)
	Link(parent.Meta(), child.Meta(), "profile")

	var got StateChange
	unsub := Subscribe(parent.Meta(), func(c StateChange) { got = c }, false, false)
	defer unsub()

	child.Set("n", "b")

	assert.Equal(t, []string{"profile", "n"}, got.Keys)
}

func TestLink_SelfLinkCycleFiresOneEvent(t *testing.T) {
	md := NewMetadata(NewID(), ShapeRecord, DefaultConfig())
	Default.Register(&fakeHandle{meta: md}, nil)
	Link(md, md, "self")

	count := 0
	unsub := Subscribe(md, func(c StateChange) { count++ }, false, false)
	defer unsub()

	Emit(md, StateChange{Type: ChangeSet, Keys: []string{"n"}, Value: "b"})

	assert.Equal(t, 1, count, "a self-link cycle must not echo the event back")
}

func TestLink_MutualCycleDoesNotRecurseForever(t *testing.T) {
	a := NewMetadata(NewID(), ShapeRecord, DefaultConfig())
	b := NewMetadata(NewID(), ShapeRecord, DefaultConfig())
	Default.Register(&fakeHandle{meta: a}, nil)
	Default.Register(&fakeHandle{meta: b}, nil)

	Link(a, b, "b")
	Link(b, a, "a")

	count := 0
	unsub := Subscribe(a, func(c StateChange) { count++ }, false, false)
	defer unsub()

	assert.NotPanics(t, func() {
		Emit(b, StateChange{Type: ChangeSet, Keys: []string{"x"}, Value: 1})
	})
	assert.Equal(t, 1, count)
}

func TestUnlink_StopsRelay(t *testing.T) {
	parent := NewRecord(map[string]any{}, DefaultConfig(), nil)
	child := NewRecord(map[string]any{"n": "a"}, DefaultConfig(), nil)
	Link(parent.Meta(), child.Meta(), "profile")
	Unlink(parent.Meta(), "profile")

	fired := false
	unsub := Subscribe(parent.Meta(), func(c StateChange) { fired = true }, false, false)
	defer unsub()

	child.Set("n", "b")
	assert.False(t, fired)
}

func TestDestroyCascade_RefusedWithExternalSubscriber(t *testing.T) {
	md := NewMetadata(NewID(), ShapeRecord, DefaultConfig())
	unsub := Subscribe(md, func(c StateChange) {}, false, false)
	defer unsub()

	ok := DestroyCascade(md, false, func() {})
	assert.False(t, ok)
	assert.False(t, md.Destroyed())
}

func TestDestroyCascade_TransitivelyDestroysOrphanedChild(t *testing.T) {
	parent := NewRecord(map[string]any{
		"profile": map[string]any{"n": "a"},
	}, DefaultConfig(), nil)
	child := parent.Get("profile").(*RecordHandle)
	require.False(t, child.Meta().Destroyed())

	ok := DestroyHandle(parent, true)

	assert.True(t, ok)
	assert.True(t, parent.Meta().Destroyed())
	assert.True(t, child.Meta().Destroyed(), "child with no external subscriber must be destroyed transitively")
}

func TestDestroyCascade_SurvivingChildKeepsExternalSubscriber(t *testing.T) {
	parent := NewRecord(map[string]any{
		"profile": map[string]any{"n": "a"},
	}, DefaultConfig(), nil)
	child := parent.Get("profile").(*RecordHandle)

	childUnsub := Subscribe(child.Meta(), func(c StateChange) {}, false, false)
	defer childUnsub()

	DestroyHandle(parent, true)

	assert.True(t, parent.Meta().Destroyed())
	assert.False(t, child.Meta().Destroyed(), "a child still externally subscribed must survive its parent")
}

// fakeHandle is a minimal Handle used by tests that only exercise the
// relational graph and broadcaster, not a concrete shape.
type fakeHandle struct {
	meta *Metadata
}

func (f *fakeHandle) HandleID() string { return f.meta.ID }
func (f *fakeHandle) Meta() *Metadata  { return f.meta }
func (f *fakeHandle) Snapshot() any    { return nil }
func (f *fakeHandle) Raw() any         { return nil }

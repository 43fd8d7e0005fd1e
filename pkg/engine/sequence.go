// SequenceHandle implements the sequence shape (spec.md §4.1's second
// family) over a []any, including the ordered-sequence variant
// (SPEC_FULL.md's resolution of Open Question 1: a trailing "sort"
// event fires after a structural mutation only if a supplied
// comparator detects the order actually changed). Grounded on the
// teacher's pkg/core/signal.go notifyDependents pattern for the event
// side and on no direct teacher analogue for the array-mutation
// methods themselves, which are written fresh in the teacher's idiom
// (exported methods on a struct wrapping a slice, guarded by the same
// Metadata mutex record.go uses).
package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/relaycore/reactor/pkg/diag"
)

// LessFunc orders two elements for the ordered-sequence variant.
type LessFunc func(a, b any) bool

// SequenceHandle is the Handle implementation backing reactor.Wrap of a
// []any initializer.
type SequenceHandle struct {
	id   string
	meta *Metadata
	data []any
	less LessFunc // non-nil only for the ordered variant
}

var _ Handle = (*SequenceHandle)(nil)

// NewSequence wraps init as a sequence handle under cfg.
func NewSequence(init []any, cfg Config, schema SchemaFunc) *SequenceHandle {
	if h, ok := Default.Resolve(init); ok {
		if sh, ok := h.(*SequenceHandle); ok {
			return sh
		}
	}

	id := NewID()
	meta := NewMetadata(id, ShapeSequence, cfg)
	meta.Schema = schema

	h := &SequenceHandle{id: id, meta: meta}
	if cfg.Cloned {
		h.data = make([]any, len(init))
	} else {
		// Raw variant: reuse init's own backing array in place of a
		// fresh copy (best-effort sharing — a later Push/Unshift that
		// outgrows init's capacity still reallocates, same as any other
		// Go slice append).
		h.data = init
	}
	Default.MarkBusy(init, h)

	for i, v := range init {
		h.data[i] = wrapNestedIfNeeded(v, cfg)
	}

	Default.Register(h, init)
	for i, v := range h.data {
		h.linkIfHandle(indexKey(i), v)
	}
	forEachReceiver(func(r Receiver) { r.OnInit(id, ShapeSequence) })
	return h
}

// NewOrderedSequence is NewSequence's ordered variant: every structural
// mutation is followed by a stable re-sort using less, with a trailing
// "sort" event emitted only when the comparator detects the order
// actually changed (SPEC_FULL.md Open Question 1).
func NewOrderedSequence(init []any, cfg Config, schema SchemaFunc, less LessFunc) *SequenceHandle {
	h := NewSequence(init, cfg, schema)
	h.less = less
	h.resortIfNeeded()
	return h
}

func (h *SequenceHandle) HandleID() string { return h.id }
func (h *SequenceHandle) Meta() *Metadata  { return h.meta }

func (h *SequenceHandle) Raw() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	return h.data
}

func (h *SequenceHandle) Snapshot() any {
	h.meta.mu.Lock()
	defer h.meta.mu.Unlock()
	out := make([]any, len(h.data))
	for i, v := range h.data {
		out[i] = snapshotValue(v)
	}
	return out
}

// Len reports the sequence's length, tracking the structural-mutation
// sentinel since length depends on every structural change.
func (h *SequenceHandle) Len() int {
	h.meta.mu.Lock()
	n := len(h.data)
	h.meta.mu.Unlock()
	TrackRead(h.meta, ArrayMutations)
	return n
}

// Get reads the element at index, tracking that index specifically.
func (h *SequenceHandle) Get(index int) any {
	h.meta.mu.Lock()
	var v any
	if index >= 0 && index < len(h.data) {
		v = h.data[index]
	}
	h.meta.mu.Unlock()
	TrackRead(h.meta, indexKey(index))
	forEachReceiver(func(r Receiver) { r.OnGet(h.id, indexKey(index)) })
	return v
}

// Set replaces the element at index, emitting a "set" event.
func (h *SequenceHandle) Set(index int, value any) {
	if !h.checkWritable("set", indexKey(index)) {
		return
	}
	wrapped := wrapNestedIfNeeded(value, h.meta.Config)

	h.meta.mu.Lock()
	if index < 0 || index >= len(h.data) {
		h.meta.mu.Unlock()
		diag.CaptureError("index out of range", nil)
		return
	}
	prev := h.data[index]
	if sameValue(prev, value) {
		h.meta.mu.Unlock()
		return
	}
	h.data[index] = wrapped
	h.meta.mu.Unlock()

	h.relinkSlot(indexKey(index), prev, wrapped)
	Emit(h.meta, StateChange{Type: ChangeSet, Keys: []string{indexKey(index)}, Value: value, Prev: snapshotValue(prev)})
	h.resortIfNeeded()
}

// Push appends items, emitting one "push" event carrying the appended
// items as Value.
func (h *SequenceHandle) Push(items ...any) int {
	if !h.checkWritable("push", "") {
		return h.Len()
	}
	wrapped := make([]any, len(items))
	for i, v := range items {
		wrapped[i] = wrapNestedIfNeeded(v, h.meta.Config)
	}

	h.meta.mu.Lock()
	h.data = append(h.data, wrapped...)
	n := len(h.data)
	h.meta.mu.Unlock()

	for i, v := range wrapped {
		h.linkIfHandle(indexKey(n-len(wrapped)+i), v)
	}
	Emit(h.meta, StateChange{Type: ChangePush, Value: items})
	h.resortIfNeeded()
	return n
}

// Pop removes and returns the last element, emitting a "pop" event
// carrying the removed value as Prev. Popping an empty sequence is a
// no-op returning nil.
func (h *SequenceHandle) Pop() any {
	if !h.checkWritable("pop", "") {
		return nil
	}
	h.meta.mu.Lock()
	if len(h.data) == 0 {
		h.meta.mu.Unlock()
		return nil
	}
	lastIndex := len(h.data) - 1
	last := h.data[lastIndex]
	h.data = h.data[:lastIndex]
	h.meta.mu.Unlock()

	h.unlinkIfHandle(indexKey(lastIndex), last)
	Emit(h.meta, StateChange{Type: ChangePop, Prev: snapshotValue(last)})
	return last
}

// Shift removes and returns the first element, emitting a "shift"
// event carrying the removed value as Prev.
func (h *SequenceHandle) Shift() any {
	if !h.checkWritable("shift", "") {
		return nil
	}
	h.meta.mu.Lock()
	if len(h.data) == 0 {
		h.meta.mu.Unlock()
		return nil
	}
	first := h.data[0]
	h.data = h.data[1:]
	h.meta.mu.Unlock()

	h.unlinkIfHandle(indexKey(0), first)
	Emit(h.meta, StateChange{Type: ChangeShift, Prev: snapshotValue(first)})
	return first
}

// Unshift prepends items, emitting one "unshift" event.
func (h *SequenceHandle) Unshift(items ...any) int {
	if !h.checkWritable("unshift", "") {
		return h.Len()
	}
	wrapped := make([]any, len(items))
	for i, v := range items {
		wrapped[i] = wrapNestedIfNeeded(v, h.meta.Config)
	}

	h.meta.mu.Lock()
	h.data = append(append([]any{}, wrapped...), h.data...)
	n := len(h.data)
	h.meta.mu.Unlock()

	for i, v := range wrapped {
		h.linkIfHandle(indexKey(i), v)
	}
	Emit(h.meta, StateChange{Type: ChangeUnshift, Value: items})
	h.resortIfNeeded()
	return n
}

// Splice removes deleteCount elements starting at start and inserts
// items in their place, mirroring the source language's Array.splice.
// It emits one "splice" event whose Value is the inserted items and
// whose Prev is the removed ones, satisfying the inverse-rule table's
// requirement that splice be self-sufficient for undo.
func (h *SequenceHandle) Splice(start, deleteCount int, items ...any) []any {
	if !h.checkWritable("splice", "") {
		return nil
	}
	wrapped := make([]any, len(items))
	for i, v := range items {
		wrapped[i] = wrapNestedIfNeeded(v, h.meta.Config)
	}

	h.meta.mu.Lock()
	if start < 0 {
		start = 0
	}
	if start > len(h.data) {
		start = len(h.data)
	}
	end := start + deleteCount
	if end > len(h.data) {
		end = len(h.data)
	}
	removed := append([]any{}, h.data[start:end]...)

	rest := append([]any{}, h.data[end:]...)
	h.data = append(h.data[:start], append(append([]any{}, wrapped...), rest...)...)
	h.meta.mu.Unlock()

	for i, v := range removed {
		h.unlinkIfHandle(indexKey(start+i), v)
	}
	for i, v := range wrapped {
		h.linkIfHandle(indexKey(start+i), v)
	}

	removedSnapshot := make([]any, len(removed))
	for i, v := range removed {
		removedSnapshot[i] = snapshotValue(v)
	}
	Emit(h.meta, StateChange{Type: ChangeSplice, Keys: []string{indexKey(start)}, Value: items, Prev: removedSnapshot})
	h.resortIfNeeded()
	return removed
}

// Sort stably reorders the sequence using less, emitting a "sort"
// event carrying the pre-sort order as Prev only if the order actually
// changed.
func (h *SequenceHandle) Sort(less LessFunc) {
	if !h.checkWritable("sort", "") {
		return
	}
	h.meta.mu.Lock()
	before := append([]any{}, h.data...)
	sort.SliceStable(h.data, func(i, j int) bool { return less(h.data[i], h.data[j]) })
	changed := !sameOrder(before, h.data)
	after := append([]any{}, h.data...)
	h.meta.mu.Unlock()

	if !changed {
		return
	}
	beforeSnap := make([]any, len(before))
	for i, v := range before {
		beforeSnap[i] = snapshotValue(v)
	}
	_ = after
	Emit(h.meta, StateChange{Type: ChangeSort, Prev: beforeSnap})
}

// Reverse reverses the sequence in place, emitting a "reverse" event.
func (h *SequenceHandle) Reverse() {
	if !h.checkWritable("reverse", "") {
		return
	}
	h.meta.mu.Lock()
	for i, j := 0, len(h.data)-1; i < j; i, j = i+1, j-1 {
		h.data[i], h.data[j] = h.data[j], h.data[i]
	}
	h.meta.mu.Unlock()
	Emit(h.meta, StateChange{Type: ChangeReverse})
}

// Fill overwrites [start,end) with value, emitting a "fill" event
// carrying the overwritten slice as Prev.
func (h *SequenceHandle) Fill(value any, start, end int) {
	if !h.checkWritable("fill", "") {
		return
	}
	wrapped := wrapNestedIfNeeded(value, h.meta.Config)

	h.meta.mu.Lock()
	if start < 0 {
		start = 0
	}
	if end > len(h.data) {
		end = len(h.data)
	}
	prev := append([]any{}, h.data[start:end]...)
	for i := start; i < end; i++ {
		h.data[i] = wrapped
	}
	h.meta.mu.Unlock()

	for i, v := range prev {
		h.unlinkIfHandle(indexKey(start+i), v)
	}
	prevSnap := make([]any, len(prev))
	for i, v := range prev {
		prevSnap[i] = snapshotValue(v)
	}
	Emit(h.meta, StateChange{Type: ChangeFill, Keys: []string{indexKey(start)}, Value: value, Prev: prevSnap})
}

// CopyWithin copies [start,end) to target, emitting a "copyWithin"
// event carrying the overwritten region as Prev.
func (h *SequenceHandle) CopyWithin(target, start, end int) {
	if !h.checkWritable("copyWithin", "") {
		return
	}
	h.meta.mu.Lock()
	n := len(h.data)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if target < 0 {
		target = 0
	}
	region := append([]any{}, h.data[start:end]...)
	overwriteEnd := target + len(region)
	if overwriteEnd > n {
		overwriteEnd = n
		region = region[:overwriteEnd-target]
	}
	prev := append([]any{}, h.data[target:overwriteEnd]...)
	copy(h.data[target:overwriteEnd], region)
	h.meta.mu.Unlock()

	prevSnap := make([]any, len(prev))
	for i, v := range prev {
		prevSnap[i] = snapshotValue(v)
	}
	Emit(h.meta, StateChange{Type: ChangeCopyWithin, Keys: []string{indexKey(target), indexKey(start), indexKey(end)}, Prev: prevSnap})
}

func (h *SequenceHandle) Destroy(force bool) bool {
	return DestroyHandle(h, force)
}

// ApplyInverse implements spec.md §4.7's inverse-rule table for every
// sequence mutation type. pkg/history calls this from backward().
func (h *SequenceHandle) ApplyInverse(c StateChange) error {
	switch c.Type {
	case ChangeSet:
		h.Set(parseIndexKey(firstKey(c.Keys)), c.Prev)
	case ChangePush:
		items, _ := c.Value.([]any)
		h.Splice(h.Len()-len(items), len(items))
	case ChangePop:
		h.Push(c.Prev)
	case ChangeUnshift:
		items, _ := c.Value.([]any)
		h.Splice(0, len(items))
	case ChangeShift:
		h.Unshift(c.Prev)
	case ChangeSplice:
		start := parseIndexKey(firstKey(c.Keys))
		inserted, _ := c.Value.([]any)
		removed, _ := c.Prev.([]any)
		h.Splice(start, len(inserted), removed...)
	case ChangeSort:
		before, _ := c.Prev.([]any)
		h.Splice(0, h.Len(), before...)
	case ChangeReverse:
		// Reverse is its own inverse.
		h.Reverse()
	case ChangeFill:
		start := parseIndexKey(firstKey(c.Keys))
		prev, _ := c.Prev.([]any)
		h.Splice(start, len(prev), prev...)
	case ChangeCopyWithin:
		target := parseIndexKey(firstKey(c.Keys))
		prev, _ := c.Prev.([]any)
		h.Splice(target, len(prev), prev...)
	default:
		return fmt.Errorf("sequence: no inverse for change type %q", c.Type)
	}
	return nil
}

// ApplyForward re-applies c's original forward effect (redo).
func (h *SequenceHandle) ApplyForward(c StateChange) error {
	switch c.Type {
	case ChangeSet:
		h.Set(parseIndexKey(firstKey(c.Keys)), c.Value)
	case ChangePush:
		items, _ := c.Value.([]any)
		h.Push(items...)
	case ChangePop:
		h.Pop()
	case ChangeUnshift:
		items, _ := c.Value.([]any)
		h.Unshift(items...)
	case ChangeShift:
		h.Shift()
	case ChangeSplice:
		start := parseIndexKey(firstKey(c.Keys))
		inserted, _ := c.Value.([]any)
		removed, _ := c.Prev.([]any)
		h.Splice(start, len(removed), inserted...)
	case ChangeSort:
		if h.less != nil {
			h.Sort(h.less)
			return nil
		}
		return fmt.Errorf("sequence: forward replay of an ad-hoc sort needs a retained comparator")
	case ChangeReverse:
		h.Reverse()
	case ChangeFill:
		start := parseIndexKey(firstKey(c.Keys))
		prev, _ := c.Prev.([]any)
		h.Fill(c.Value, start, start+len(prev))
	case ChangeCopyWithin:
		keys := c.Keys
		if len(keys) < 3 {
			return fmt.Errorf("sequence: copyWithin change missing source range for forward replay")
		}
		h.CopyWithin(parseIndexKey(keys[0]), parseIndexKey(keys[1]), parseIndexKey(keys[2]))
	default:
		return fmt.Errorf("sequence: no forward replay for change type %q", c.Type)
	}
	return nil
}

// RestoreSnapshot replaces h's entire contents with v, a previously
// decoded snapshot (pkg/codec's persisted-state restore path). v must
// be a []any; anything else is a decode-shape mismatch.
func (h *SequenceHandle) RestoreSnapshot(v any) error {
	s, ok := v.([]any)
	if !ok {
		return fmt.Errorf("sequence: RestoreSnapshot expects []any, got %T", v)
	}
	h.Splice(0, h.Len(), s...)
	return nil
}

// parseIndexKey parses an indexKey-formatted string ("[3]") back to its
// int index; malformed input yields 0.
func parseIndexKey(k string) int {
	if len(k) < 2 || k[0] != '[' || k[len(k)-1] != ']' {
		return 0
	}
	n, _ := strconv.Atoi(k[1 : len(k)-1])
	return n
}

func (h *SequenceHandle) checkWritable(op, key string) bool {
	if h.meta.Destroyed() {
		diag.CaptureViolation(op+" on destroyed handle", h.id, keysOrNil(key))
		return false
	}
	if h.meta.Config.Immutable {
		diag.CaptureViolation(op+" on immutable handle", h.id, keysOrNil(key))
		return false
	}
	return true
}

func keysOrNil(key string) []string {
	if key == "" {
		return nil
	}
	return []string{key}
}

func (h *SequenceHandle) linkIfHandle(key string, v any) {
	if child, ok := v.(Handle); ok {
		Link(h.meta, child.Meta(), key)
	}
}

func (h *SequenceHandle) unlinkIfHandle(key string, v any) {
	if _, ok := v.(Handle); ok {
		Unlink(h.meta, key)
	}
}

func (h *SequenceHandle) relinkSlot(key string, prev, next any) {
	if _, ok := prev.(Handle); ok {
		Unlink(h.meta, key)
	}
	h.linkIfHandle(key, next)
}

// resortIfNeeded re-sorts the ordered variant after a structural
// mutation and emits a trailing "sort" event only if the order
// actually changed (SPEC_FULL.md Open Question 1).
func (h *SequenceHandle) resortIfNeeded() {
	if h.less == nil {
		return
	}
	h.Sort(h.less)
}

func sameOrder(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func indexKey(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

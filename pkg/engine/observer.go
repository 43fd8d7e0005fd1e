// Observer core (spec.md §4.5), grounded on the teacher's
// pkg/bubbly/tracker.go DepTracker: the same per-goroutine active-stack
// technique (sync.Map keyed by goroutine id, parsed out of
// runtime.Stack, with an atomic fast-path counter) replaces the
// teacher's dependency-tracking use case with this engine's "which
// (handle,key) pairs did this observer read" use case. Unlike
// DepTracker, which tracks opaque Dependency values, Observer tracks
// handle-id+key pairs directly since that is what the broadcaster needs
// to filter on.
package engine

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Observer is the entity from spec.md §4.5/§3: its onChange callback
// fires when any (handle,key) pair it read during Run changes.
type Observer struct {
	ID       string
	Name     string
	onChange func(StateChange)
	onTrack  func(handleID, key string)

	mu        sync.Mutex
	states    map[string]map[string]struct{} // handle id -> tracked keys
	destroyed bool
}

// CreateObserver constructs an Observer. onTrack, if non-nil, is called
// once per newly tracked (handle,key) pair — spec.md §6's
// `createObserver(onChange, onTrack?)`.
func CreateObserver(onChange func(StateChange), onTrack func(handleID, key string)) *Observer {
	return &Observer{
		ID:       NewID(),
		Name:     "observer",
		onChange: onChange,
		onTrack:  onTrack,
		states:   make(map[string]map[string]struct{}),
	}
}

// Run pushes obs onto the active-observer slot for the calling
// goroutine, invokes fn, pops, and returns fn's result. Any reactive
// read inside fn records into obs via Track.
func (o *Observer) Run(fn func() any) any {
	activeObservers.push(o)
	defer activeObservers.pop()
	return fn()
}

// Track records that obs read key on md, and (on first touch)
// bidirectionally registers obs with md so Metadata.detachObserver and
// Observer.Destroy can tear each other down (spec.md §4.5's
// `assign(handle, observers)`). Called by shape interceptors on every
// tracked read while this observer is active.
func (o *Observer) Track(md *Metadata, key string) {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		return
	}
	keys, ok := o.states[md.ID]
	firstTouch := !ok
	if !ok {
		keys = make(map[string]struct{})
		o.states[md.ID] = keys
	}
	_, already := keys[key]
	keys[key] = struct{}{}
	onTrack := o.onTrack
	o.mu.Unlock()

	if firstTouch {
		md.attachObserver(o)
	}
	if !already && onTrack != nil {
		safeCall(func() { onTrack(md.ID, key) })
	}
	forEachReceiver(func(r Receiver) { r.OnTrack(o.ID, md.ID, key) })
}

// Tracks reports whether obs is currently tracking key on handleID,
// where key may also be one of ArrayMutations/CollectionMutations.
func (o *Observer) Tracks(handleID, key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys, ok := o.states[handleID]
	if !ok {
		return false
	}
	_, tracked := keys[key]
	return tracked
}

// notify invokes onChange with change, isolated so a panicking observer
// callback (spec.md §7 "external") never blocks sibling observers.
func (o *Observer) notify(change StateChange) {
	o.mu.Lock()
	destroyed := o.destroyed
	cb := o.onChange
	o.mu.Unlock()
	if destroyed || cb == nil {
		return
	}
	safeCall(func() { cb(change) })
}

// Destroy detaches obs from every handle it tracked. Idempotent.
func (o *Observer) Destroy() {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		return
	}
	o.destroyed = true
	handleIDs := make([]string, 0, len(o.states))
	for id := range o.states {
		handleIDs = append(handleIDs, id)
	}
	o.states = make(map[string]map[string]struct{})
	o.mu.Unlock()

	for _, id := range handleIDs {
		if h, ok := Default.Lookup(id); ok {
			h.Meta().detachObserver(o.ID)
		}
	}
}

// --- per-goroutine active-observer stack, grounded on DepTracker ---

type observerStack struct {
	states         sync.Map // map[uint64][]*Observer
	activeTrackers atomic.Int32
}

var activeObservers = &observerStack{}

func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	idx := bytes.Index(buf, []byte(prefix))
	if idx == -1 {
		return 0
	}
	buf = buf[idx+len(prefix):]
	spaceIdx := bytes.IndexByte(buf, ' ')
	if spaceIdx == -1 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:spaceIdx]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (s *observerStack) push(o *Observer) {
	gid := goroutineID()
	val, _ := s.states.LoadOrStore(gid, &[]*Observer{})
	stack := val.(*[]*Observer)
	*stack = append(*stack, o)
	s.activeTrackers.Add(1)
}

func (s *observerStack) pop() {
	gid := goroutineID()
	val, ok := s.states.Load(gid)
	if !ok {
		return
	}
	stack := val.(*[]*Observer)
	if len(*stack) == 0 {
		return
	}
	*stack = (*stack)[:len(*stack)-1]
	s.activeTrackers.Add(-1)
	if len(*stack) == 0 {
		s.states.Delete(gid)
	}
}

// Active returns the innermost Observer running on the calling
// goroutine, or nil if none.
func (s *observerStack) Active() *Observer {
	if s.activeTrackers.Load() == 0 {
		return nil
	}
	gid := goroutineID()
	val, ok := s.states.Load(gid)
	if !ok {
		return nil
	}
	stack := val.(*[]*Observer)
	if len(*stack) == 0 {
		return nil
	}
	return (*stack)[len(*stack)-1]
}

// ActiveObserver returns the currently running Observer for this
// goroutine, used by shape interceptors to record tracked reads.
func ActiveObserver() *Observer {
	return activeObservers.Active()
}

// TrackRead records a reactive read of key on md with the active
// observer, if any, and if md.Config.Observable allows it. Every shape
// interceptor's read-trap calls this before returning the value.
func TrackRead(md *Metadata, key string) {
	if !md.Config.Observable {
		return
	}
	if o := ActiveObserver(); o != nil {
		o.Track(md, key)
	}
}

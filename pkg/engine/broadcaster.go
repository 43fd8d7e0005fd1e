// Broadcaster (spec.md §4.2): fans a StateChange out to a handle's
// observers (filtered by tracked key) and subscribers (filtered by
// internal/external + emitter-id echo suppression), then lifts it to any
// linked parent. Grounded on the teacher's Signal.notifyDependents/Set
// (pkg/core/signal.go), generalized from "notify every Dependency" to
// the spec's two-tier observer/subscriber model with key filtering.
package engine

import (
	"sync"

	"github.com/relaycore/reactor/pkg/diag"
)

// Subscribe attaches fn to md. Relay subscriptions for the relational
// graph are installed by relation.go's Link through subscribeInternal.
// Every call installs a new entry under a fresh id and returns that
// entry's unsubscribe; subscribing the same callback twice is not
// detected, and both entries fire.
func Subscribe(md *Metadata, fn SubscriberFunc, internal bool, emitInit bool) (unsubscribe func()) {
	md.mu.Lock()
	md.nextSubscriberSeq++
	id := formatSeq("sub", md.nextSubscriberSeq)
	md.subscribers[id] = &subscriberEntry{fn: fn, internal: internal}
	md.mu.Unlock()

	forEachReceiver(func(r Receiver) { r.OnSubscribe(md.ID, id, internal) })

	if emitInit {
		safeCall(func() { fn(StateChange{Type: ChangeInit, emitterID: md.ID}) })
	}

	return func() {
		md.mu.Lock()
		_, existed := md.subscribers[id]
		delete(md.subscribers, id)
		md.mu.Unlock()
		if existed {
			forEachReceiver(func(r Receiver) { r.OnUnsubscribe(md.ID, id) })
		}
	}
}

// subscribeInternal is relation.go's entry point: it needs the returned
// subscriber id to also be recorded in the parent's `subscriptions` map,
// keyed by link key, so Unlink can dispose it later.
func subscribeInternal(md *Metadata, emitterID string, fn SubscriberFunc) func() {
	md.mu.Lock()
	md.nextSubscriberSeq++
	id := formatSeq("sub", md.nextSubscriberSeq)
	md.subscribers[id] = &subscriberEntry{fn: fn, internal: true, internalEmitterID: emitterID}
	md.mu.Unlock()
	forEachReceiver(func(r Receiver) { r.OnSubscribe(md.ID, id, true) })
	return func() {
		md.mu.Lock()
		delete(md.subscribers, id)
		md.mu.Unlock()
	}
}

// Emit notifies md's observers and subscribers of change, then lifts the
// event to any linked parent (relation.go's responsibility, invoked via
// md.root-independent parent links stored as internal subscriptions —
// Emit itself only walks the subscriber list; Link installs the
// upward-relaying subscriber so recursion up the tree falls out of the
// ordinary subscriber path).
func Emit(md *Metadata, change StateChange) {
	if change.emitterID == "" {
		change.emitterID = md.ID
	}

	md.mu.Lock()
	if md.emitting {
		// A relational-graph cycle looped back into a handle that is
		// still broadcasting its own event; drop it instead of
		// recursing forever (invariant 4).
		md.mu.Unlock()
		return
	}
	md.emitting = true
	md.mu.Unlock()
	defer func() {
		md.mu.Lock()
		md.emitting = false
		md.mu.Unlock()
	}()

	if change.Error != nil && md.Config.Strict && !md.hasExceptionHandlers() {
		diag.CaptureValidation(md.ID, change.Keys, change.Error, change.Issues, true, false)
	} else if change.Error != nil {
		md.notifyExceptionHandlers(change)
	}

	// Subscribers fire before observers (spec.md §5's ordering rule): a
	// derived projection built on an observer must see state that
	// ordinary subscribers have already been handed, not an
	// in-between value.
	notifySubscribers(md, change)
	notifyObservers(md, change)
	emitToDevtools(md, change)
	notifyCaptureHooks(md, change)
}

var (
	captureMu    sync.RWMutex
	captureHooks = map[string]func(md *Metadata, c StateChange){}
	captureSeq   uint64
)

// RegisterCaptureHook attaches fn to every future Emit call across every
// handle, with full StateChange fidelity — unlike the dev-tool Receiver
// protocol above, which flattens array mutations down to a bare
// OnCall(method, args) for inspector-UI purposes. pkg/history's
// Undoable (spec.md §6's "global inspector hook") uses this to capture
// exactly the events a captured function produced without needing to
// know in advance which handles that function will touch.
func RegisterCaptureHook(fn func(md *Metadata, c StateChange)) (unregister func()) {
	captureMu.Lock()
	captureSeq++
	id := formatSeq("capture", captureSeq)
	captureHooks[id] = fn
	captureMu.Unlock()
	return func() {
		captureMu.Lock()
		delete(captureHooks, id)
		captureMu.Unlock()
	}
}

func notifyCaptureHooks(md *Metadata, change StateChange) {
	captureMu.RLock()
	defer captureMu.RUnlock()
	for _, fn := range captureHooks {
		func(fn func(*Metadata, StateChange)) {
			defer func() { recover() }()
			fn(md, change)
		}(fn)
	}
}

func notifyObservers(md *Metadata, change StateChange) {
	observers := md.observersSnapshot()
	if change.Type == ChangeAssign {
		// assign fires one batch event (Open Question 2), but an observer
		// that only tracked one key inside the patch must still see it.
		keys := assignKeys(change)
		for _, o := range observers {
			for _, k := range keys {
				if o.Tracks(md.ID, k) {
					o.notify(change)
					break
				}
			}
		}
		return
	}
	key := primaryKey(change)
	for _, o := range observers {
		if observerMatches(o, md.ID, key, change.Type) {
			o.notify(change)
		}
	}
}

// assignKeys collects every key touched by an assign patch, from both
// the new values and whichever of them already had a prior value.
func assignKeys(change StateChange) []string {
	seen := make(map[string]struct{})
	if patch, ok := change.Value.(map[string]any); ok {
		for k := range patch {
			seen[k] = struct{}{}
		}
	}
	if prev, ok := change.Prev.(map[string]any); ok {
		for k := range prev {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	return out
}

// observerMatches implements spec.md §4.2's filter: the observer's
// tracked-key set for this handle must contain the mutated key, or the
// shape-appropriate "any structural change" sentinel.
func observerMatches(o *Observer, handleID, key string, changeType ChangeType) bool {
	if key != "" && o.Tracks(handleID, key) {
		return true
	}
	if isStructural(changeType) {
		return o.Tracks(handleID, ArrayMutations) || o.Tracks(handleID, CollectionMutations)
	}
	return false
}

func isStructural(t ChangeType) bool {
	switch t {
	case ChangeAssign, ChangeRemove, ChangeClear, ChangeSort, ChangeReverse,
		ChangePush, ChangePop, ChangeShift, ChangeUnshift, ChangeSplice,
		ChangeFill, ChangeCopyWithin, ChangeAdd:
		return true
	default:
		return false
	}
}

func primaryKey(change StateChange) string {
	if len(change.Keys) == 0 {
		return ""
	}
	return change.Keys[0]
}

func notifySubscribers(md *Metadata, change StateChange) {
	md.mu.Lock()
	entries := make([]*subscriberEntry, 0, len(md.subscribers))
	for _, e := range md.subscribers {
		entries = append(entries, e)
	}
	md.mu.Unlock()

	for _, e := range entries {
		if e.internal && e.internalEmitterID != "" && e.internalEmitterID == md.ID && change.emitterID == md.ID {
			// Direct self-link (Link(md, key, md)): relaying md's own
			// event back into md would be a no-op echo, since md's
			// ordinary subscribers already saw it in this same call.
			continue
		}
		if change.Error != nil && !e.internal {
			// External subscribers only see validated writes unless
			// they explicitly subscribed via catch(); catch() installs
			// its handler through exceptionHandlers instead, so plain
			// subscribers never see an errored event at all.
			continue
		}
		safeCall(func(fn SubscriberFunc) func() { return func() { fn(change) } }(e.fn))
	}
}

func emitToDevtools(md *Metadata, change StateChange) {
	switch change.Type {
	case ChangeSet:
		key := primaryKey(change)
		forEachReceiver(func(r Receiver) { r.OnSet(md.ID, key, change.Prev, change.Value) })
	case ChangeDelete:
		key := primaryKey(change)
		forEachReceiver(func(r Receiver) { r.OnDelete(md.ID, key, change.Prev) })
	case ChangeAssign:
		patch, _ := change.Value.(map[string]any)
		prev, _ := change.Prev.(map[string]any)
		forEachReceiver(func(r Receiver) { r.OnAssign(md.ID, patch, prev) })
	case ChangeRemove:
		forEachReceiver(func(r Receiver) { r.OnRemove(md.ID, change.Keys) })
	case ChangeClear:
		forEachReceiver(func(r Receiver) { r.OnClear(md.ID) })
	default:
		forEachReceiver(func(r Receiver) { r.OnCall(md.ID, string(change.Type), change.Value) })
	}
}

package devtools

import (
	"sync"
	"time"

	"github.com/relaycore/reactor/pkg/engine"
)

// EventRecord is one observed engine.Receiver callback. Unlike the
// teacher's per-callback struct zoo (RefInfo, ComponentSnapshot, ...)
// this module has exactly one dynamically-shaped domain (handles), so a
// single generic record with a free-form Detail map covers every
// Receiver method without fourteen near-identical structs.
type EventRecord struct {
	SeqID     uint64         `json:"seq_id"`
	Kind      string         `json:"kind"`
	HandleID  string         `json:"handle_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// HandleSummary describes a handle the Store has observed being
// registered, for the "what exists" side of the inspector (as opposed
// to "what happened", which is the event log).
type HandleSummary struct {
	HandleID string      `json:"handle_id"`
	Kind     engine.Shape `json:"kind"`
}

// Store implements engine.Receiver, keeping a bounded ring of recent
// events plus a registry of every handle kind seen, grounded on the
// teacher's DevToolsStore (component/event/performance collection)
// narrowed to this module's handle/StateChange domain.
type Store struct {
	mu       sync.RWMutex
	capacity int
	events   []EventRecord
	seq      uint64
	handles  map[string]engine.Shape
}

// NewStore returns a Store retaining at most capacity events.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Store{capacity: capacity, handles: map[string]engine.Shape{}}
}

func (s *Store) attach() (token string, unregister func()) {
	return engine.RegisterReceiver(s)
}

func (s *Store) record(kind, handleID string, detail map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec := EventRecord{SeqID: s.seq, Kind: kind, HandleID: handleID, Detail: detail, Timestamp: time.Now()}
	s.events = append(s.events, rec)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
}

// AllHandles returns every handle kind the Store has observed, sorted
// by nothing in particular (callers needing order should sort by ID).
func (s *Store) AllHandles() []HandleSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HandleSummary, 0, len(s.handles))
	for id, kind := range s.handles {
		out = append(out, HandleSummary{HandleID: id, Kind: kind})
	}
	return out
}

// Events returns up to limit most recent events, optionally filtered to
// a single handle (pass "" for every handle). limit <= 0 means
// unbounded.
func (s *Store) Events(handleID string, limit int) []EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventRecord, 0, len(s.events))
	for _, e := range s.events {
		if handleID != "" && e.HandleID != handleID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Snapshot resolves handleID against the process-wide registry and
// returns its current detached snapshot, for resource handlers that
// need "what does this look like right now" rather than the event log.
func (s *Store) Snapshot(handleID string) (any, bool) {
	h, ok := engine.Default.Lookup(handleID)
	if !ok {
		return nil, false
	}
	return h.Snapshot(), true
}

// Clear discards every retained event (used by the clear_event_log MCP
// tool). Handle registrations are left intact since they describe what
// exists, not what happened.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	s.events = nil
	return n
}

// --- engine.Receiver ---

func (s *Store) OnInit(handleID string, kind engine.Shape) {
	s.mu.Lock()
	s.handles[handleID] = kind
	s.mu.Unlock()
	s.record("init", handleID, map[string]any{"kind": kind})
}

func (s *Store) OnGet(handleID string, key string) {
	s.record("get", handleID, map[string]any{"key": key})
}

func (s *Store) OnSet(handleID string, key string, prev, value any) {
	s.record("set", handleID, map[string]any{"key": key, "prev": prev, "value": value})
}

func (s *Store) OnDelete(handleID string, key string, prev any) {
	s.record("delete", handleID, map[string]any{"key": key, "prev": prev})
}

func (s *Store) OnCall(handleID string, method string, args any) {
	s.record("call", handleID, map[string]any{"method": method, "args": args})
}

func (s *Store) OnAssign(handleID string, patch map[string]any, prev map[string]any) {
	s.record("assign", handleID, map[string]any{"patch": patch, "prev": prev})
}

func (s *Store) OnRemove(handleID string, keys []string) {
	s.record("remove", handleID, map[string]any{"keys": keys})
}

func (s *Store) OnClear(handleID string) {
	s.record("clear", handleID, nil)
}

func (s *Store) OnSubscribe(handleID string, subscriberID string, internal bool) {
	s.record("subscribe", handleID, map[string]any{"subscriber_id": subscriberID, "internal": internal})
}

func (s *Store) OnUnsubscribe(handleID string, subscriberID string) {
	s.record("unsubscribe", handleID, map[string]any{"subscriber_id": subscriberID})
}

func (s *Store) OnLink(parentID, childID, key string) {
	s.record("link", parentID, map[string]any{"child_id": childID, "key": key})
}

func (s *Store) OnUnlink(parentID, childID, key string) {
	s.record("unlink", parentID, map[string]any{"child_id": childID, "key": key})
}

func (s *Store) OnTrack(observerID, handleID, key string) {
	s.record("track", handleID, map[string]any{"observer_id": observerID, "key": key})
}

func (s *Store) OnUntrack(observerID, handleID, key string) {
	s.record("untrack", handleID, map[string]any{"observer_id": observerID, "key": key})
}

func (s *Store) OnDestroy(handleID string) {
	s.mu.Lock()
	delete(s.handles, handleID)
	s.mu.Unlock()
	s.record("destroy", handleID, nil)
}

package engine

import "sync"

// SubscriberFunc is a callback fired on every StateChange of a handle (or,
// once linked, of any descendant — see relation.go).
type SubscriberFunc func(StateChange)

// subscriberEntry distinguishes an external (user-installed) subscriber
// from an internal one installed by the relational graph to relay child
// events to a parent, per spec.md §4.2.
type subscriberEntry struct {
	fn       SubscriberFunc
	internal bool
	// internalEmitterID is set only for internal subscribers: it is the
	// id of the parent metadata the relay feeds. When it equals the
	// subscribed handle's own id (a self-link), that handle's own events
	// are not relayed back into it (spec.md invariant 4).
	internalEmitterID string
}

// Metadata is the one-per-handle record described in spec.md §3. The
// registry owns every Metadata; handles only ever hold the id.
type Metadata struct {
	mu sync.Mutex

	ID   string
	Kind Shape

	Config Config
	Schema SchemaFunc

	// Root points at the topmost handle's metadata this one belongs to,
	// set when a value is linked in as another handle's child (invariant 5).
	Root *Metadata

	subscribers       map[string]*subscriberEntry
	nextSubscriberSeq uint64

	// observers maps an Observer's id to the Observer itself, so destroy
	// can detach bidirectionally without the observer needing to know
	// every handle it touched ahead of time.
	observers map[string]*Observer

	// subscriptions maps an outgoing link key to the unsubscribe closure
	// installed on the child when it was linked in — the parent's half
	// of the relational graph's bookkeeping (spec.md §4.4).
	subscriptions map[string]func()
	// linkedChildren mirrors subscriptions' keys to the linked child's
	// metadata, so destroying this handle can cascade into children
	// left with no remaining external subscriber.
	linkedChildren map[string]*Metadata

	exceptionHandlers map[string]func(StateChange)
	nextHandlerSeq    uint64

	// emitting guards Emit against the reentrant loop a relational-graph
	// cycle would otherwise cause (invariant 4): a child relay calling
	// back into a handle that is already mid-broadcast is dropped rather
	// than recursing forever.
	emitting bool

	destroyed bool
}

// SchemaFunc is the pluggable validation predicate contract from spec.md
// §4.6/§6: `(value) -> (ok, issues)`.
type SchemaFunc func(value any) (ok bool, issues []string)

// NewMetadata allocates a Metadata record for a freshly wrapped handle.
// Callers must still call Registry.Register to make it addressable.
func NewMetadata(id string, kind Shape, cfg Config) *Metadata {
	return &Metadata{
		ID:                id,
		Kind:              kind,
		Config:            cfg,
		subscribers:       make(map[string]*subscriberEntry),
		observers:         make(map[string]*Observer),
		subscriptions:     make(map[string]func()),
		linkedChildren:    make(map[string]*Metadata),
		exceptionHandlers: make(map[string]func(StateChange)),
	}
}

// Destroyed reports whether this handle was already torn down.
func (m *Metadata) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// HasExternalSubscribers reports whether any non-internal subscriber is
// still attached — destroy() without force refuses while this is true.
func (m *Metadata) HasExternalSubscribers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.subscribers {
		if !e.internal {
			return true
		}
	}
	return false
}

// AddExceptionHandler registers fn, returning an unregister token.
func (m *Metadata) AddExceptionHandler(fn func(StateChange)) (token string, unregister func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHandlerSeq++
	id := formatSeq("handler", m.nextHandlerSeq)
	m.exceptionHandlers[id] = fn
	return id, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.exceptionHandlers, id)
	}
}

// attachObserver records that o has read at least one key on m.
func (m *Metadata) attachObserver(o *Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[o.ID] = o
}

// detachObserver removes the bookkeeping link without touching the
// Observer's own state (Observer.Destroy drives that half).
func (m *Metadata) detachObserver(observerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.observers, observerID)
}

// observersSnapshot returns the observers currently attached to m, for
// the broadcaster to filter and notify.
func (m *Metadata) observersSnapshot() []*Observer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Observer, 0, len(m.observers))
	for _, o := range m.observers {
		out = append(out, o)
	}
	return out
}

func (m *Metadata) hasExceptionHandlers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exceptionHandlers) > 0
}

func (m *Metadata) notifyExceptionHandlers(change StateChange) {
	m.mu.Lock()
	handlers := make([]func(StateChange), 0, len(m.exceptionHandlers))
	for _, h := range m.exceptionHandlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		safeCall(func() { h(change) })
	}
}

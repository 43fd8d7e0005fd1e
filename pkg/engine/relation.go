// Relational graph (spec.md §4.4): parent->child linking/unlinking, with
// child events lifted to the parent's subscribers under a prefixed key
// path. Grounded on the teacher's provide/inject parent-pointer style
// (pkg/bubbly/context.go, pkg/bubbly/provide_inject.go) generalized from
// a single context-tree edge to an arbitrary key-addressed link table.
package engine

// Link installs the parent<-child edge for key: every event child emits
// is relayed to parent's subscribers with key prepended to its Keys
// path, and child.Root is set to parent's topmost root (invariant 5).
// Link is idempotent per (parent,key): calling it again first disposes
// the previous link at that key.
func Link(parent, child *Metadata, key string) {
	Unlink(parent, key)

	unsubscribe := subscribeInternal(child, parent.ID, func(change StateChange) {
		Emit(parent, change.WithPrefix(key))
	})

	parent.mu.Lock()
	parent.subscriptions[key] = unsubscribe
	parent.linkedChildren[key] = child
	parent.mu.Unlock()

	child.mu.Lock()
	if parent.Root != nil {
		child.Root = parent.Root
	} else {
		child.Root = parent
	}
	child.mu.Unlock()

	forEachReceiver(func(r Receiver) { r.OnLink(parent.ID, child.ID, key) })
}

// Unlink disposes the subscription installed by Link for key, if any.
// Safe to call when no link exists at key.
func Unlink(parent *Metadata, key string) {
	parent.mu.Lock()
	unsubscribe, ok := parent.subscriptions[key]
	if ok {
		delete(parent.subscriptions, key)
		delete(parent.linkedChildren, key)
	}
	parent.mu.Unlock()
	if !ok {
		return
	}
	unsubscribe()
}

// UnlinkChild disposes the single link from parent at key; links to the
// same child under other keys are left in place. childID is reported to receivers even though the link-key mapping does
// not retain the reverse index, matching the teacher's parent-pointer
// style which favors the forward (parent->child) edge.
func UnlinkChild(parent *Metadata, childID, key string) {
	Unlink(parent, key)
	forEachReceiver(func(r Receiver) { r.OnUnlink(parent.ID, childID, key) })
}

// DestroyCascade tears down md: it refuses (returning false) while
// external subscribers remain unless force is set, otherwise unsubscribes
// every outgoing link (transitively destroying any child left with no
// remaining external subscriber) and marks md destroyed. Idempotent.
func DestroyCascade(md *Metadata, force bool, unregister func()) bool {
	md.mu.Lock()
	if md.destroyed {
		md.mu.Unlock()
		return true
	}
	if !force {
		for _, e := range md.subscribers {
			if !e.internal {
				md.mu.Unlock()
				return false
			}
		}
	}
	subs := make(map[string]func(), len(md.subscriptions))
	for k, v := range md.subscriptions {
		subs[k] = v
	}
	children := make([]*Metadata, 0, len(md.linkedChildren))
	for _, c := range md.linkedChildren {
		children = append(children, c)
	}
	md.subscriptions = make(map[string]func())
	md.linkedChildren = make(map[string]*Metadata)
	md.destroyed = true
	md.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}

	for _, o := range md.observersSnapshot() {
		o.Destroy()
	}

	unregister()
	forEachReceiver(func(r Receiver) { r.OnDestroy(md.ID) })

	// Transitive destroy: a child left with no remaining external
	// subscriber after this parent's relay was disposed is torn down
	// too. force=false so a child still held by some other external
	// subscriber survives.
	for _, c := range children {
		if h, ok := Default.Lookup(c.ID); ok {
			_ = DestroyHandle(h, false)
		}
	}
	return true
}

// DestroyHandle is the shared entry point every shape's Destroy method
// calls: it looks up md's registered unregister closure via the
// registry and drives DestroyCascade.
func DestroyHandle(h Handle, force bool) bool {
	md := h.Meta()
	return DestroyCascade(md, force, func() { Default.Unregister(h.HandleID()) })
}

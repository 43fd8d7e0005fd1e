package mcp

import (
	"sync"
	"time"

	"github.com/relaycore/reactor/pkg/batch"
	"github.com/relaycore/reactor/pkg/engine"
)

// UpdateNotification is one pending "this resource changed" signal for
// a subscribed client, queued by Notifier and drained by whatever
// transport-level push mechanism a given MCP SDK version supports.
type UpdateNotification struct {
	ClientID string
	URI      string
}

// Notifier batches resource-change notifications behind a
// pkg/batch.Collector so a burst of rapid mutations collapses into one
// flush per throttle window, grounded on the teacher's
// NotificationSender+UpdateBatcher pair but built directly on this
// module's own L8 batching primitive instead of reimplementing a
// second timer-based batcher.
type Notifier struct {
	mu      sync.Mutex
	pending []UpdateNotification
	coll    *batch.Collector[UpdateNotification]

	subs *SubscriptionManager

	unregister func()
}

// NewNotifier attaches to the process-wide capture hook and batches
// resource-changed notifications for every client subscribed to the
// affected handle's state/event resources, flushing at most once per
// throttle window.
func NewNotifier(s *Server, throttle time.Duration) *Notifier {
	if throttle <= 0 {
		throttle = 100 * time.Millisecond
	}
	n := &Notifier{subs: s.subs}
	n.coll = batch.NewCollector(func() time.Duration { return throttle }, n.flush)
	n.unregister = engine.RegisterCaptureHook(func(md *engine.Metadata, _ engine.StateChange) {
		for _, uri := range []string{"reactor://state/snapshot", "reactor://events/log"} {
			for _, clientID := range n.subs.ClientsFor(uri) {
				n.coll.Add(UpdateNotification{ClientID: clientID, URI: uri})
			}
		}
	})
	return n
}

func (n *Notifier) flush(updates []UpdateNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, updates...)
}

// Drain returns and clears every notification queued since the last
// Drain call.
func (n *Notifier) Drain() []UpdateNotification {
	n.coll.Flush()
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.pending
	n.pending = nil
	return out
}

// Stop detaches the notifier from the capture hook and its collector.
func (n *Notifier) Stop() {
	n.unregister()
	n.coll.Stop()
}

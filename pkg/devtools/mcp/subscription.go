package mcp

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Subscription is a client's registered interest in a resource URI,
// grounded on the teacher's identical Subscription/SubscriptionManager
// pair (subscription.go).
type Subscription struct {
	ID          string
	ClientID    string
	ResourceURI string
}

// SubscriptionManager tracks active subscriptions per client, enforcing
// a per-client cap and deduplicating repeat subscribe calls.
type SubscriptionManager struct {
	mu            sync.RWMutex
	subscriptions map[string][]*Subscription
	maxPerClient  int
}

// NewSubscriptionManager returns a manager capping each client to
// maxPerClient concurrent subscriptions.
func NewSubscriptionManager(maxPerClient int) *SubscriptionManager {
	return &SubscriptionManager{subscriptions: map[string][]*Subscription{}, maxPerClient: maxPerClient}
}

// Subscribe registers clientID's interest in uri, returning the new
// subscription's id (or the existing one, if already subscribed).
func (m *SubscriptionManager) Subscribe(clientID, uri string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscriptions[clientID] {
		if sub.ResourceURI == uri {
			return sub.ID, nil
		}
	}
	if len(m.subscriptions[clientID]) >= m.maxPerClient {
		return "", fmt.Errorf("mcp: client %q already has the maximum of %d subscriptions", clientID, m.maxPerClient)
	}

	sub := &Subscription{ID: uuid.NewString(), ClientID: clientID, ResourceURI: uri}
	m.subscriptions[clientID] = append(m.subscriptions[clientID], sub)
	return sub.ID, nil
}

// Unsubscribe removes clientID's subscription to uri, if any.
func (m *SubscriptionManager) Unsubscribe(clientID, uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscriptions[clientID]
	out := subs[:0]
	for _, sub := range subs {
		if sub.ResourceURI != uri {
			out = append(out, sub)
		}
	}
	m.subscriptions[clientID] = out
}

// UnsubscribeAll drops every subscription belonging to clientID, for
// client-disconnect cleanup.
func (m *SubscriptionManager) UnsubscribeAll(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, clientID)
}

// ClientsFor returns every client currently subscribed to uri.
func (m *SubscriptionManager) ClientsFor(uri string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for clientID, subs := range m.subscriptions {
		for _, sub := range subs {
			if sub.ResourceURI == uri {
				out = append(out, clientID)
				break
			}
		}
	}
	return out
}

func (s *Server) registerSubscriptionTools() error {
	return nil
}

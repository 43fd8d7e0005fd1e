// Package devtools implements spec.md §6's dev-tool protocol extension
// point: an in-memory inspector that observes every engine operation via
// engine.Receiver and exposes what it collects to external tooling (the
// MCP bridge in pkg/devtools/mcp, or any other consumer of Store's query
// methods).
//
// Grounded on the teacher's pkg/bubbly/devtools package (DevTools
// singleton + DevToolsStore), trimmed from a component-tree/TUI
// inspector down to the shape this module actually has: handles and
// StateChange events, no component tree, no render timeline.
package devtools

import (
	"sync"

	"github.com/relaycore/reactor/pkg/engine"
)

// DevTools is the devtools singleton: collecting is free when disabled
// (the Receiver is simply never registered) and the usual < 5% overhead
// story when enabled, per the teacher's own performance framing.
type DevTools struct {
	mu      sync.RWMutex
	enabled bool
	store   *Store

	token      string
	unregister func()
}

var (
	globalMu   sync.Mutex
	globalOnce sync.Once
	global     *DevTools
)

// Enable creates (once) and enables the process-wide DevTools singleton,
// registering its Store as an engine.Receiver. Idempotent.
func Enable() *DevTools {
	globalOnce.Do(func() {
		global = New()
	})
	global.enable()
	return global
}

// Disable unregisters the singleton's Store from the engine, if enabled.
func Disable() {
	globalMu.Lock()
	dt := global
	globalMu.Unlock()
	if dt != nil {
		dt.disable()
	}
}

// IsEnabled reports whether the singleton is currently collecting.
func IsEnabled() bool {
	globalMu.Lock()
	dt := global
	globalMu.Unlock()
	return dt != nil && dt.Enabled()
}

// New constructs a standalone DevTools instance (not the singleton),
// useful for tests that want an isolated Store.
func New() *DevTools {
	return &DevTools{store: NewStore(1000)}
}

func (dt *DevTools) enable() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	if dt.enabled {
		return
	}
	dt.token, dt.unregister = dt.store.attach()
	dt.enabled = true
}

func (dt *DevTools) disable() {
	dt.mu.Lock()
	defer dt.mu.Unlock()
	if !dt.enabled {
		return
	}
	dt.unregister()
	dt.enabled = false
}

// Enabled reports whether this instance is currently collecting.
func (dt *DevTools) Enabled() bool {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.enabled
}

// GetStore returns the instance's Store, usable for queries regardless
// of whether collection is currently enabled.
func (dt *DevTools) GetStore() *Store {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.store
}

// Register attaches an arbitrary engine.Receiver directly to the engine,
// bypassing the Store entirely — spec.md §6's dev-tool protocol is meant
// to be pluggable, and not every external collaborator wants the Store's
// ring-buffer query surface (an in-process metrics sink can implement
// Receiver itself and call Register straight away).
func Register(r engine.Receiver) (token string, unregister func()) {
	return engine.RegisterReceiver(r)
}

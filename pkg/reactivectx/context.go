// Package reactivectx implements spec.md §4.8's context frames: a
// stack of key/value scopes a host can nest to pass ambient state down
// a call chain without threading it through every function signature
// (the bubbly-composable equivalent of React's context or Vue's
// provide/inject, generalized away from a component tree).
//
// Grounded on pkg/engine/observer.go's per-goroutine active-stack
// technique (itself ported from the teacher's pkg/bubbly/tracker.go
// DepTracker): ActivateContext pushes onto a sync.Map keyed by
// goroutine id exactly the way Observer.Run pushes the active
// observer, rather than reusing the teacher's component-tree-walking
// provide_inject.go (that design assumes a Component parent chain this
// engine has no equivalent of — a context frame here scopes a call
// chain, not a render tree).
package reactivectx

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/relaycore/reactor/pkg/diag"
)

// Context is a single frame of key/value state. The zero value is not
// usable; construct with New.
type Context struct {
	mu     sync.Mutex
	values map[string]any
}

// New constructs an empty context frame.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// Store is the optional host integration point (spec.md §4.8's
// ContextStore): when installed via SetContextStore, Run delegates
// scoping to it instead of this package's default per-goroutine stack
// — e.g. a multi-threaded host can give each worker its own frame
// stack, while a single-threaded cooperative host can rely on the
// built-in per-goroutine stack.
type Store interface {
	Run(ctx *Context, fn func())
}

var (
	storeMu sync.RWMutex
	store   Store
)

// SetContextStore installs s as the scoping delegate for Run. Passing
// nil reverts to the default per-goroutine stack.
func SetContextStore(s Store) {
	storeMu.Lock()
	store = s
	storeMu.Unlock()
}

// ActivateContext pushes ctx onto the active-frame stack for the
// calling goroutine and returns a restore function that pops it.
// Nesting is supported: activating a second context while the first is
// still active stacks frames, and SetContext/GetContext always operate
// on the innermost one. restore is idempotent.
func ActivateContext(ctx *Context) (restore func()) {
	activeContexts.push(ctx)
	popped := false
	return func() {
		if popped {
			return
		}
		popped = true
		activeContexts.pop()
	}
}

// Run activates ctx, runs fn, and restores the previous frame
// afterward — equivalent to `defer ActivateContext(ctx)()` followed by
// fn(), except it delegates to a host-installed Store's Run when one
// is set (spec.md §4.8's integration point).
func Run(ctx *Context, fn func()) {
	storeMu.RLock()
	s := store
	storeMu.RUnlock()
	if s != nil {
		s.Run(ctx, fn)
		return
	}
	restore := ActivateContext(ctx)
	defer restore()
	fn()
}

// SetContext assigns value at key on the active frame. Outside any
// frame, it diagnoses and is a no-op (spec.md §4.8).
func SetContext(key string, value any) {
	ctx := activeContexts.Active()
	if ctx == nil {
		diag.CaptureViolation("setContext outside any active context frame", "", []string{key})
		return
	}
	ctx.mu.Lock()
	ctx.values[key] = value
	ctx.mu.Unlock()
}

// GetContext reads key from the active frame, returning fallback if
// the key is absent or no frame is active. Outside any frame, it also
// diagnoses (spec.md §4.8).
func GetContext(key string, fallback any) any {
	ctx := activeContexts.Active()
	if ctx == nil {
		diag.CaptureViolation("getContext outside any active context frame", "", []string{key})
		return fallback
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if v, ok := ctx.values[key]; ok {
		return v
	}
	return fallback
}

// --- per-goroutine active-context stack, mirroring engine.Observer's ---

type contextStack struct {
	states sync.Map // map[uint64][]*Context
	active atomic.Int32
}

var activeContexts = &contextStack{}

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

func (s *contextStack) push(ctx *Context) {
	gid := goroutineID()
	val, _ := s.states.LoadOrStore(gid, &[]*Context{})
	stack := val.(*[]*Context)
	*stack = append(*stack, ctx)
	s.active.Add(1)
}

func (s *contextStack) pop() {
	gid := goroutineID()
	val, ok := s.states.Load(gid)
	if !ok {
		return
	}
	stack := val.(*[]*Context)
	if len(*stack) == 0 {
		return
	}
	*stack = (*stack)[:len(*stack)-1]
	s.active.Add(-1)
	if len(*stack) == 0 {
		s.states.Delete(gid)
	}
}

// Active returns the innermost active Context for the calling
// goroutine, or nil if none is active.
func (s *contextStack) Active() *Context {
	if s.active.Load() == 0 {
		return nil
	}
	gid := goroutineID()
	val, ok := s.states.Load(gid)
	if !ok {
		return nil
	}
	stack := val.(*[]*Context)
	if len(*stack) == 0 {
		return nil
	}
	return (*stack)[len(*stack)-1]
}

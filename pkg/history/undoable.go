package history

import (
	"github.com/relaycore/reactor/pkg/diag"
	"github.com/relaycore/reactor/pkg/engine"
)

// capturedEvent pairs a StateChange with the handle it landed on, since
// RegisterCaptureHook only gives us the Metadata pointer, and inverse
// replay needs the Handle for its ApplyInverse method.
type capturedEvent struct {
	handle engine.Handle
	change engine.StateChange
}

// Undoable runs fn while a capture hook records every StateChange
// emitted anywhere in the process (spec.md §6's "captures the changes
// fn produced via a global inspector hook"), then returns an undo
// function that replays every captured event's inverse in reverse
// order, and a clear function that discards the capture without
// undoing it. Unlike Recorder, Undoable needs no handle up front: it
// is meant for one-shot "run this mutation, let me undo the whole
// thing" call sites (e.g. a failed multi-field form submission)
// rather than a standing undo/redo stack.
func Undoable(fn func()) (undo func(), clear func()) {
	var events []capturedEvent

	unregister := engine.RegisterCaptureHook(func(md *engine.Metadata, c engine.StateChange) {
		if c.Type == engine.ChangeInit {
			return
		}
		h, ok := engine.Default.Lookup(md.ID)
		if !ok {
			return
		}
		events = append(events, capturedEvent{handle: h, change: c})
	})
	fn()
	unregister()

	applied := false
	undo = func() {
		if applied {
			return
		}
		applied = true
		for i := len(events) - 1; i >= 0; i-- {
			e := events[i]
			replay, ok := e.handle.(engine.Replayable)
			if !ok {
				diag.CaptureViolation("undoable: captured handle is not Replayable", e.handle.HandleID(), nil)
				continue
			}
			if err := replay.ApplyInverse(e.change); err != nil {
				diag.CaptureError("undoable: inverse replay failed", err)
			}
		}
	}
	clear = func() {
		applied = true
		events = nil
	}
	return undo, clear
}

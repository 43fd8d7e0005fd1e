// Package diag implements the structured error taxonomy from spec.md §7.
// Every kind but Contract is non-fatal: it produces a Record that is
// routed to the configured observability.Reporter and/or to a handle's
// registered exception handlers, and the triggering operation no-ops.
// Contract is the sole terminal kind, matching spec.md's "the only case
// where the core aborts".
//
// Grounded on the teacher's pkg/bubbly/composables/errors.go sentinel
// style, generalized from ad hoc sentinel errors into a closed taxonomy
// with a pluggable sink (github.com/relaycore/reactor/pkg/observability),
// adapted from the teacher's pkg/bubbly/observability.ErrorReporter.
package diag

import (
	"fmt"
	"log/slog"
	"sync"
)

// Kind is the closed taxonomy of diagnostic categories from spec.md §7.
type Kind string

const (
	Initialization Kind = "initialization"
	Argument       Kind = "argument"
	Validation     Kind = "validation"
	Violation      Kind = "violation"
	Contract       Kind = "contract"
	External       Kind = "external"
)

// Record is a single structured diagnostic, the non-panicking alternative
// to exceptions named throughout spec.md §7.
type Record struct {
	Kind      Kind
	Message   string
	HandleID  string
	Keys      []string
	Err       error
	Issues    []string
	Recovered bool
}

func (r Record) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Message, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

// Sink receives every non-terminal diagnostic. observability.Reporter
// implementations satisfy this by way of a thin adaptor; see
// pkg/observability/bridge.go.
type Sink interface {
	ReportDiagnostic(Record)
}

var (
	mu          sync.RWMutex
	sink        Sink
	logger      = slog.Default()
	strictCount int
)

// SetSink installs the global diagnostic sink. Passing nil reverts to
// logging through log/slog only (there is no third-party structured
// logger in the teacher's own dependency set, so slog — the standard
// library's structured logger — is the deliberate exception to "never
// fall back to stdlib"; see DESIGN.md).
func SetSink(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	sink = s
}

func dispatch(rec Record) {
	mu.RLock()
	s := sink
	mu.RUnlock()

	logger.Warn("reactor diagnostic", "kind", rec.Kind, "message", rec.Message, "handle", rec.HandleID)
	if s != nil {
		s.ReportDiagnostic(rec)
	}
}

// CaptureError reports an Initialization/Argument-class diagnostic: the
// operation no-ops and the input is returned verbatim by the caller.
func CaptureError(message string, err error) Record {
	rec := Record{Kind: Initialization, Message: message, Err: err}
	dispatch(rec)
	return rec
}

// CaptureWarning reports a soft diagnostic (duplicate subscription,
// destroy-with-subscribers refusal) that does not carry an error value.
func CaptureWarning(message string, handleID string) Record {
	rec := Record{Kind: Argument, Message: message, HandleID: handleID}
	dispatch(rec)
	return rec
}

// CaptureViolation reports a write rejected by immutability, read-only,
// or destroyed-handle enforcement.
func CaptureViolation(message string, handleID string, keys []string) Record {
	rec := Record{Kind: Violation, Message: message, HandleID: handleID, Keys: keys}
	dispatch(rec)
	return rec
}

// CaptureValidation reports a schema predicate rejection. When strict is
// set and hasHandlers is not, it then panics with the Record.
func CaptureValidation(handleID string, keys []string, err error, issues []string, strict bool, hasHandlers bool) Record {
	rec := Record{Kind: Validation, Message: "schema validation failed", HandleID: handleID, Keys: keys, Err: err, Issues: issues}
	dispatch(rec)
	if strict && !hasHandlers {
		panic(rec)
	}
	return rec
}

// CaptureContractViolation reports the one terminal diagnostic kind: a
// caller used an interceptor-only operation against a non-reactive
// value. This panics immediately; there is no recovery path, matching
// spec.md §7's description of Contract as the only case where the core
// aborts.
func CaptureContractViolation(message string) Record {
	rec := Record{Kind: Contract, Message: message}
	dispatch(rec)
	panic(rec)
}

// CaptureExternal reports a panic or error raised by host-supplied code
// (a subscriber, observer callback, or transform). It never interrupts
// sibling callbacks; the caller is expected to have already recovered.
func CaptureExternal(message string, err error) Record {
	rec := Record{Kind: External, Message: message, Err: err, Recovered: true}
	dispatch(rec)
	return rec
}

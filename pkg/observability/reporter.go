// Package observability adapts the teacher's pluggable error-reporter
// pattern (pkg/bubbly/observability) to the reactive-state domain: a
// Reporter receives panics raised inside subscriber/observer callbacks and
// general diagnostics, with a no-op default so reporting never has a cost
// unless a reporter is configured.
package observability

import (
	"fmt"
	"sync"
	"time"
)

// CallbackPanicError wraps a panic recovered from a subscriber, observer,
// or derivation callback so the triggering handle and operation survive
// into the report.
type CallbackPanicError struct {
	HandleID   string
	Operation  string
	PanicValue interface{}
}

func (e *CallbackPanicError) Error() string {
	return fmt.Sprintf("panic in callback: handle %q, operation %q, panic: %v",
		e.HandleID, e.Operation, e.PanicValue)
}

// Reporter is a pluggable error-tracking backend. A nil Reporter (the
// default) means diagnostics are logged via pkg/diag only.
type Reporter interface {
	ReportPanic(err *CallbackPanicError, ctx *ErrorContext)
	ReportError(err error, ctx *ErrorContext)
	Flush(timeout time.Duration) error
}

// ErrorContext carries the handle/operation context around a diagnostic.
type ErrorContext struct {
	HandleID    string
	Keys        []string
	Operation   string
	Timestamp   time.Time
	Tags        map[string]string
	Extra       map[string]interface{}
	Breadcrumbs []Breadcrumb
	StackTrace  []byte
}

// Breadcrumb is a single recorded step leading up to a diagnostic.
type Breadcrumb struct {
	Type      string
	Category  string
	Message   string
	Level     string
	Timestamp time.Time
	Data      map[string]interface{}
}

var (
	globalReporterMu sync.RWMutex
	globalReporter   Reporter
)

// SetReporter configures the process-wide reporter. Pass nil to disable.
func SetReporter(r Reporter) {
	globalReporterMu.Lock()
	defer globalReporterMu.Unlock()
	globalReporter = r
}

// GetReporter returns the configured reporter, or nil.
func GetReporter() Reporter {
	globalReporterMu.RLock()
	defer globalReporterMu.RUnlock()
	return globalReporter
}

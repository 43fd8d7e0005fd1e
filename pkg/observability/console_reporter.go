package observability

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ConsoleReporter writes diagnostics to stderr. Intended for development;
// Flush is a no-op since writes are synchronous.
type ConsoleReporter struct {
	verbose bool
	mu      sync.Mutex
}

func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return &ConsoleReporter{verbose: verbose}
}

func (r *ConsoleReporter) ReportPanic(err *CallbackPanicError, ctx *ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[reactor] panic: handle=%s op=%s: %v\n", ctx.HandleID, ctx.Operation, err.PanicValue)
	if r.verbose {
		r.printContext(ctx)
	}
}

func (r *ConsoleReporter) ReportError(err error, ctx *ErrorContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[reactor] error: handle=%s op=%s: %v\n", ctx.HandleID, ctx.Operation, err)
	if r.verbose {
		r.printContext(ctx)
	}
}

func (r *ConsoleReporter) printContext(ctx *ErrorContext) {
	if len(ctx.Keys) > 0 {
		fmt.Fprintf(os.Stderr, "  keys: %v\n", ctx.Keys)
	}
	for k, v := range ctx.Tags {
		fmt.Fprintf(os.Stderr, "  tag %s=%s\n", k, v)
	}
	for _, bc := range ctx.Breadcrumbs {
		fmt.Fprintf(os.Stderr, "  breadcrumb [%s] %s: %s\n", bc.Category, bc.Level, bc.Message)
	}
	if len(ctx.StackTrace) > 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ctx.StackTrace)
	}
}

func (r *ConsoleReporter) Flush(timeout time.Duration) error { return nil }

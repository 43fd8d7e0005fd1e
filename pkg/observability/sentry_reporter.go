package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryReporter sends diagnostics to Sentry via the Hub API, grounded on
// the teacher's SentryReporter (pkg/bubbly/observability/sentry_reporter.go).
type SentryReporter struct {
	hub *sentry.Hub
}

type SentryOption func(*sentry.ClientOptions)

func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.BeforeSend = fn }
}

func WithDebug(debug bool) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Debug = debug }
}

func WithEnvironment(environment string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Environment = environment }
}

func WithRelease(release string) SentryOption {
	return func(opts *sentry.ClientOptions) { opts.Release = release }
}

// NewSentryReporter initializes the Sentry SDK. An empty dsn disables
// sending, which is convenient for tests.
func NewSentryReporter(dsn string, opts ...SentryOption) (*SentryReporter, error) {
	clientOpts := sentry.ClientOptions{Dsn: dsn}
	for _, opt := range opts {
		opt(&clientOpts)
	}
	if err := sentry.Init(clientOpts); err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return &SentryReporter{hub: sentry.CurrentHub()}, nil
}

func (r *SentryReporter) ReportPanic(err *CallbackPanicError, ctx *ErrorContext) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		r.applyContext(scope, ctx)
		scope.SetExtra("panic_value", err.PanicValue)
		r.hub.CaptureException(fmt.Errorf("panic in handle %q operation %q: %v",
			ctx.HandleID, ctx.Operation, err.PanicValue))
	})
}

func (r *SentryReporter) ReportError(err error, ctx *ErrorContext) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		r.applyContext(scope, ctx)
		r.hub.CaptureException(err)
	})
}

func (r *SentryReporter) applyContext(scope *sentry.Scope, ctx *ErrorContext) {
	scope.SetTag("handle_id", ctx.HandleID)
	if ctx.Operation != "" {
		scope.SetTag("operation", ctx.Operation)
	}
	for key, value := range ctx.Tags {
		scope.SetTag(key, value)
	}
	for key, value := range ctx.Extra {
		scope.SetExtra(key, value)
	}
	for _, bc := range ctx.Breadcrumbs {
		scope.AddBreadcrumb(&sentry.Breadcrumb{
			Type:      bc.Type,
			Category:  bc.Category,
			Message:   bc.Message,
			Level:     sentry.Level(bc.Level),
			Timestamp: bc.Timestamp,
			Data:      bc.Data,
		}, 100)
	}
}

// Flush blocks until pending events are sent or timeout elapses.
func (r *SentryReporter) Flush(timeout time.Duration) error {
	sentry.Flush(timeout)
	return nil
}

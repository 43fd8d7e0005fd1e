package observability

import (
	"time"

	"github.com/relaycore/reactor/pkg/diag"
)

// DiagBridge adapts a Reporter into a diag.Sink so diag.SetSink can route
// every non-terminal diagnostic to whichever Reporter is configured.
type DiagBridge struct {
	Reporter Reporter
}

// NewDiagBridge wraps r for use with diag.SetSink.
func NewDiagBridge(r Reporter) *DiagBridge {
	return &DiagBridge{Reporter: r}
}

func (b *DiagBridge) ReportDiagnostic(rec diag.Record) {
	if b.Reporter == nil {
		return
	}
	ctx := &ErrorContext{
		HandleID:  rec.HandleID,
		Keys:      rec.Keys,
		Operation: string(rec.Kind),
		Timestamp: time.Now(),
		Extra:     map[string]interface{}{"issues": rec.Issues},
	}
	if rec.Kind == diag.External && rec.Recovered {
		b.Reporter.ReportPanic(&CallbackPanicError{
			HandleID:   rec.HandleID,
			Operation:  rec.Message,
			PanicValue: rec.Err,
		}, ctx)
		return
	}
	if rec.Err != nil {
		b.Reporter.ReportError(rec.Err, ctx)
		return
	}
	b.Reporter.ReportError(rec, ctx)
}

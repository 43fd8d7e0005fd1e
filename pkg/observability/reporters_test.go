package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleReporter_New(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
	}{
		{name: "verbose", verbose: true},
		{name: "quiet", verbose: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewConsoleReporter(tt.verbose)
			require.NotNil(t, r)
			assert.Implements(t, (*Reporter)(nil), r)
		})
	}
}

func TestConsoleReporter_ReportPanicAndError(t *testing.T) {
	r := NewConsoleReporter(true)
	ctx := &ErrorContext{HandleID: "h1", Operation: "set", Timestamp: time.Now()}

	assert.NotPanics(t, func() {
		r.ReportPanic(&CallbackPanicError{HandleID: "h1", Operation: "set", PanicValue: "boom"}, ctx)
	})
	assert.NotPanics(t, func() {
		r.ReportError(assert.AnError, ctx)
	})
	assert.NoError(t, r.Flush(time.Second))
}

func TestSetGetReporter(t *testing.T) {
	defer SetReporter(nil)

	assert.Nil(t, GetReporter())

	r := NewConsoleReporter(false)
	SetReporter(r)
	assert.Same(t, r, GetReporter())

	SetReporter(nil)
	assert.Nil(t, GetReporter())
}

package engine

import (
	"fmt"

	"github.com/relaycore/reactor/pkg/diag"
)

func formatSeq(prefix string, n uint64) string {
	return fmt.Sprintf("%s-%d", prefix, n)
}

// safeCall runs fn, routing any panic to diag as an External diagnostic
// instead of letting it escape — spec.md §7: "a raising callback does not
// prevent siblings from running".
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			diag.CaptureExternal("callback panicked", err)
		}
	}()
	fn()
}

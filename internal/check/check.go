// Package check reports contract violations: caller bugs such as decrementing
// an empty chunker or passing a nil property-tree handle.
//
// With the ccdebug build tag a violation panics. Otherwise it is logged at
// warn level and the caller continues best-effort.
package check

import (
	"fmt"

	"github.com/gogpu/compositor"
)

// That reports a violation when cond is false. msg and args are formatted
// with fmt.Sprintf only when the check fails.
func That(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	fail(fmt.Sprintf(msg, args...))
	return false
}

func fail(msg string) {
	if Enabled {
		panic("compositor: contract violation: " + msg)
	}
	compositor.Logger().Warn("contract violation", "msg", msg)
}

//go:build pseudofs_debug

package assertx

import "fmt"

// Enabled reports whether debug-mode invariant checks are compiled in.
const Enabled = true

// Check panics with a formatted message if cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

//go:build !pseudofs_debug

package assertx

// Enabled reports whether debug-mode invariant checks are compiled in.
// The pseudofs_debug build tag turns on the extra checks the kernel ABI
// doesn't strictly require for correctness but that catch programming
// errors early (full meminfo label comparisons, ASCII byte checks, ...).
const Enabled = false

// Check panics with a formatted message if cond is false and debug
// checks are enabled. It is a no-op in release builds.
func Check(cond bool, format string, args ...any) {}

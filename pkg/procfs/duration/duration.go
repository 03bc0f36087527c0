// Package duration parses the fractional-seconds text format the Linux
// kernel uses throughout procfs (e.g. "1234.56"): an integer part, an
// optional decimal point, and an optional fractional part expressing
// sub-second precision.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ja7ad/pseudofs/internal/assertx"
)

// ParseSeconds parses a string of the form "DIGITS('.'DIGITS?)?" into a
// time.Duration. The fractional part is truncated (never rounded) to
// nanosecond resolution: input with more than 9 fractional digits
// silently drops everything past the ninth. This is parsing of a
// standardized kernel format, so malformed input is a bug in the
// caller or an ABI break, not a recoverable condition; it is reported
// as an error rather than a panic only because callers may want to
// wrap it with file/line context.
func ParseSeconds(input string) (time.Duration, error) {
	whole, frac, hasDot := strings.Cut(input, ".")

	seconds, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("duration: invalid whole-seconds part %q: %w", whole, err)
	}

	var nanos uint64
	if hasDot && frac != "" {
		assertx.Check(isAllDigits(frac), "duration: non-digit in fractional part %q", frac)
		if len(frac) > 9 {
			frac = frac[:9]
		}
		decimals, err := strconv.ParseUint(frac, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("duration: invalid fractional part %q: %w", frac, err)
		}
		multiplier := pow10(9 - len(frac))
		nanos = decimals * multiplier
	}

	return time.Duration(seconds)*time.Second + time.Duration(nanos)*time.Nanosecond, nil
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func pow10(n int) uint64 {
	r := uint64(1)
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}

//go:build linux

package stat

import (
	"fmt"
	"os"
)

// ReadAggregateCPUTicks reads path (typically Path) once and returns the
// raw tick counters from the aggregate "cpu" line, bypassing the
// Sampler's two-pass schema contract. It exists for callers that take
// independent one-shot snapshots of system CPU time — utilization
// deltas computed across arbitrary call sites rather than a fixed
// sampling loop — and have no use for a frozen per-sampler schema.
func ReadAggregateCPUTicks(path string) ([]uint64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rs := Parser{}.Parse(buf)
	for {
		rec, ok := rs.Next()
		if !ok {
			return nil, fmt.Errorf("stat: %s: no aggregate cpu line found", path)
		}
		if rec.Kind.Tag != CPUTotal {
			for {
				if _, more := rs.tok.Next(); !more {
					break
				}
			}
			continue
		}

		var ticks []uint64
		for {
			col, ok := rs.tok.Next()
			if !ok {
				break
			}
			ticks = append(ticks, parseUint(col, 64, "cpu tick column"))
		}
		return ticks, nil
	}
}

//go:build linux

package stat

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	ticksOnce    sync.Once
	ticksPerSec  int64
	nanosPerTick time.Duration
)

// ticksPerSecond returns the platform's clock-tick rate, read once per
// process. A real sysconf(_SC_CLK_TCK) call requires cgo; this module
// avoids cgo the same way its reference implementation's Go-side
// collector package does, defaulting to the near-universal Linux value
// of 100 and allowing a CLK_TCK environment variable override for
// tests and unusual kernels.
func ticksPerSecond() int64 {
	ticksOnce.Do(func() {
		ticksPerSec = 100
		if v := os.Getenv("CLK_TCK"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				ticksPerSec = n
			}
		}
		nanosPerTick = time.Second / time.Duration(ticksPerSec)
	})
	return ticksPerSec
}

func ticksToDuration(ticks uint64) time.Duration {
	ticksPerSecond() // ensure nanosPerTick is initialized
	whole := ticks / uint64(ticksPerSec)
	rem := ticks % uint64(ticksPerSec)
	return time.Duration(whole)*time.Second + time.Duration(rem)*nanosPerTick
}

// ParseCPU reads this record's remaining columns as a CPU timer row:
// 4 to 10 tick counters, converted to durations using the platform's
// clock-tick rate. Counts outside that range are a bug, not a
// recoverable condition, since the kernel ABI promises 4 mandatory
// fields and has only ever added up to 6 more.
func (r Record) ParseCPU() []time.Duration {
	var ticks []uint64
	for {
		col, ok := r.tok.Next()
		if !ok {
			break
		}
		ticks = append(ticks, parseUint(col, 64, "cpu tick column"))
	}
	if len(ticks) < 4 || len(ticks) > 10 {
		panic(fmt.Sprintf("stat: cpu record %s has %d timer columns, must be 4..10", r.Kind, len(ticks)))
	}

	out := make([]time.Duration, len(ticks))
	for i, t := range ticks {
		out[i] = ticksToDuration(t)
	}
	return out
}

// These constants give the index of each timer in a CPU record's
// columns, matching the kernel's column order.
const (
	cpuUser = iota
	cpuNice
	cpuSystem
	cpuIdle
	cpuIOWait
	cpuIRQ
	cpuSoftIRQ
	cpuStolen
	cpuGuest
	cpuGuestNice
)

// CPUColumns is the structure-of-arrays history for one CPU record
// (the aggregate "cpu" line, or one "cpuN" thread line). NumFields
// fixes which of the optional fields beyond the mandatory four
// (User/Nice/System/Idle) this kernel reports; it never changes after
// construction.
type CPUColumns struct {
	NumFields int

	UserTime, NiceTime, SystemTime, IdleTime []time.Duration

	// The following are nil when NumFields doesn't reach them.
	IOWaitTime, IRQTime, SoftIRQTime, StolenTime, GuestTime, GuestNiceTime []time.Duration
}

func newCPUColumns(first []time.Duration) *CPUColumns {
	c := &CPUColumns{NumFields: len(first)}
	c.append(first)
	return c
}

func (c *CPUColumns) append(v []time.Duration) {
	c.UserTime = append(c.UserTime, v[cpuUser])
	c.NiceTime = append(c.NiceTime, v[cpuNice])
	c.SystemTime = append(c.SystemTime, v[cpuSystem])
	c.IdleTime = append(c.IdleTime, v[cpuIdle])
	if c.NumFields > cpuIOWait {
		c.IOWaitTime = append(c.IOWaitTime, v[cpuIOWait])
	}
	if c.NumFields > cpuIRQ {
		c.IRQTime = append(c.IRQTime, v[cpuIRQ])
	}
	if c.NumFields > cpuSoftIRQ {
		c.SoftIRQTime = append(c.SoftIRQTime, v[cpuSoftIRQ])
	}
	if c.NumFields > cpuStolen {
		c.StolenTime = append(c.StolenTime, v[cpuStolen])
	}
	if c.NumFields > cpuGuest {
		c.GuestTime = append(c.GuestTime, v[cpuGuest])
	}
	if c.NumFields > cpuGuestNice {
		c.GuestNiceTime = append(c.GuestNiceTime, v[cpuGuestNice])
	}
}

func (c *CPUColumns) push(v []time.Duration) {
	if len(v) != c.NumFields {
		panic(fmt.Sprintf("stat: cpu timer column count changed from %d to %d", c.NumFields, len(v)))
	}
	c.append(v)
}

// Len is the number of samples recorded for this CPU record.
func (c *CPUColumns) Len() int { return len(c.UserTime) }

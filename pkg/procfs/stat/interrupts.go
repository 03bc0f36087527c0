//go:build linux

package stat

import "fmt"

// ParseInterrupts reads this record's total counter followed by one
// per-source counter. Used for both "intr" (hardware IRQs) and
// "softirq" (software IRQs), which share this exact shape.
func (r Record) ParseInterrupts() (total uint64, sources []uint64) {
	total = parseUint(r.nextColumn("interrupts"), 64, "interrupt total")
	for {
		col, ok := r.tok.Next()
		if !ok {
			break
		}
		sources = append(sources, parseUint(col, 64, "interrupt source counter"))
	}
	return total, sources
}

// Counter is one interrupt source's sample history. Most of the few
// hundred IRQ lines x86 exposes never fire in a typical sampling
// session, so a counter starts as a bare count of leading zeros
// (zeroRun) instead of an explicit slice. The first nonzero value
// observed back-fills that many zeros into an explicit slice and the
// counter never reverts to the zero-run form afterwards.
type Counter struct {
	zeroRun int
	values  []uint64 // non-nil once any nonzero value has been observed
}

func newCounter(first uint64) *Counter {
	c := &Counter{}
	c.push(first)
	return c
}

func (c *Counter) push(v uint64) {
	if c.values != nil {
		c.values = append(c.values, v)
		return
	}
	if v == 0 {
		c.zeroRun++
		return
	}
	c.values = make([]uint64, c.zeroRun, c.zeroRun+1)
	c.values = append(c.values, v)
}

// Len is the number of samples recorded, whether still in the
// zero-run form or already explicit.
func (c *Counter) Len() int {
	if c.values != nil {
		return len(c.values)
	}
	return c.zeroRun
}

// IsZeroRun reports whether this counter has never observed a nonzero
// sample and is still stored as a bare count.
func (c *Counter) IsZeroRun() bool { return c.values == nil }

// Values materializes the full explicit sample sequence, whether or
// not the counter ever left the zero-run form.
func (c *Counter) Values() []uint64 {
	if c.values != nil {
		return c.values
	}
	return make([]uint64, c.zeroRun)
}

func (c *Counter) String() string {
	if c.values != nil {
		return fmt.Sprintf("Samples(%v)", c.values)
	}
	return fmt.Sprintf("ZeroRun(%d)", c.zeroRun)
}

// InterruptColumns is the structure-of-arrays history of one
// interrupts record ("intr" or "softirq"): a dense total plus one
// zero-run-compressed Counter per source, in kernel-reported order.
type InterruptColumns struct {
	Total   []uint64
	Sources []*Counter
}

func newInterruptColumns(total uint64, sources []uint64) *InterruptColumns {
	ic := &InterruptColumns{Total: []uint64{total}, Sources: make([]*Counter, len(sources))}
	for i, v := range sources {
		ic.Sources[i] = newCounter(v)
	}
	return ic
}

func (ic *InterruptColumns) push(total uint64, sources []uint64) {
	if len(sources) != len(ic.Sources) {
		panic(fmt.Sprintf("stat: interrupt source count changed from %d to %d", len(ic.Sources), len(sources)))
	}
	ic.Total = append(ic.Total, total)
	for i, v := range sources {
		ic.Sources[i].push(v)
	}
}

// Len is the number of samples recorded.
func (ic *InterruptColumns) Len() int { return len(ic.Total) }

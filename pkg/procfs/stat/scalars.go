//go:build linux

package stat

import "time"

// ParseContextSwitches reads the "ctxt" line's single counter: the
// total number of context switches across all CPUs since boot.
func (r Record) ParseContextSwitches() uint64 {
	v := parseUint(r.nextColumn("ctxt"), 64, "context switch counter")
	r.assertExhausted("ctxt")
	return v
}

// ParseBootTime reads the "btime" line's single field: seconds since
// the epoch at boot, as reported by the kernel's own clock.
func (r Record) ParseBootTime() time.Time {
	secs := parseUint(r.nextColumn("btime"), 64, "boot time")
	r.assertExhausted("btime")
	return time.Unix(int64(secs), 0).UTC()
}

// ParseProcessForks reads the "processes" line's single counter: the
// number of forks (and clones) since boot.
func (r Record) ParseProcessForks() uint32 {
	v := parseUint(r.nextColumn("processes"), 32, "process fork counter")
	r.assertExhausted("processes")
	return uint32(v)
}

// ParseProcesses reads a "procs_running" or "procs_blocked" line's
// single counter: a small, kernel-bounded process count.
func (r Record) ParseProcesses() uint16 {
	v := parseUint(r.nextColumn("procs"), 16, "process count")
	r.assertExhausted("procs")
	return uint16(v)
}

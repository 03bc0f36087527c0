//go:build linux

package proc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ja7ad/pseudofs/pkg/procfs/reader"
	"github.com/ja7ad/pseudofs/pkg/procfs/stat"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go library,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE)
// to ease testing, then falls back to os.Getpagesize().
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

// Exists reports whether a given PID currently exists in /proc.
// It simply checks if /proc/<pid> is a valid directory.
func Exists(pid int) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

//
// Per-PID readers
//

// ReadProcStat parses /proc/<pid>/stat and extracts four fields:
// - utime: user CPU jiffies
// - stime: system CPU jiffies
// - minflt: minor page faults (no I/O required)
// - majflt: major page faults (required I/O)
//
// Caveats:
//   - Field order is fixed, but comm (2nd field) is in parens and may contain
//     spaces. We strip everything before the closing ") " safely.
//   - Returns uint64 counters (monotonic increasing).
func ReadProcStat(pid int) (utime, stime, minflt, majflt uint64, err error) {
	rd, e := reader.Open(fmt.Sprintf("/proc/%d/stat", pid))
	if e != nil {
		return 0, 0, 0, 0, e
	}
	defer rd.Close()

	err = rd.Sample(func(buf []byte) error {
		// Everything before ") " is pid + comm; after that are numeric fields.
		i := bytes.LastIndex(buf, []byte(") "))
		if i < 0 {
			return ErrNoStat
		}
		tok := tokenizer.New(buf[i+2:])
		if !tok.NextLine() {
			return ErrNoStat
		}

		var fields [][]byte
		for {
			col, ok := tok.Next()
			if !ok {
				break
			}
			fields = append(fields, col)
		}

		get := func(idx int) (uint64, error) {
			if idx >= len(fields) {
				return 0, ErrShortStat
			}
			return strconv.ParseUint(string(fields[idx]), 10, 64)
		}

		// Indexes relative to fields slice:
		// minflt (10th overall) => fields[7]
		// majflt (12th overall) => fields[9]
		// utime (14th overall) => fields[11]
		// stime (15th overall) => fields[12]
		var e error
		if minflt, e = get(7); e != nil {
			return e
		}
		if majflt, e = get(9); e != nil {
			return e
		}
		if utime, e = get(11); e != nil {
			return e
		}
		if stime, e = get(12); e != nil {
			return e
		}
		return nil
	})
	return
}

// ReadProcIO reads /proc/<pid>/io and returns read_bytes and write_bytes.
// These counters are monotonic and in bytes.
//
// Note: Not all processes expose this file (some kernel threads); in that case
// you’ll get an error.
func ReadProcIO(pid int) (readBytes, writeBytes uint64, err error) {
	rd, e := reader.Open(fmt.Sprintf("/proc/%d/io", pid))
	if e != nil {
		return 0, 0, e
	}
	defer rd.Close()

	err = rd.Sample(func(buf []byte) error {
		tok := tokenizer.New(buf)
		for tok.NextLine() {
			label, ok := tok.Next()
			if !ok {
				continue
			}
			val, ok := tok.Next()
			if !ok {
				continue
			}
			switch string(label) {
			case "read_bytes:":
				readBytes, _ = strconv.ParseUint(string(val), 10, 64)
			case "write_bytes:":
				writeBytes, _ = strconv.ParseUint(string(val), 10, 64)
			}
		}
		return nil
	})
	return readBytes, writeBytes, err
}

// ReadProcRSS returns the Resident Set Size (RSS) in bytes for a PID.
// It prefers smaps_rollup (aggregated, since kernel 4.14) for accuracy.
// If unavailable, falls back to statm’s resident page count.
//
// Returns error if neither source is available.
func ReadProcRSS(pid int) (uint64, error) {
	// Prefer smaps_rollup
	if rd, err := reader.Open(fmt.Sprintf("/proc/%d/smaps_rollup", pid)); err == nil {
		var rss uint64
		var found bool
		_ = rd.Sample(func(buf []byte) error {
			tok := tokenizer.New(buf)
			for tok.NextLine() {
				label, ok := tok.Next()
				if !ok || string(label) != "Rss:" {
					continue
				}
				val, ok := tok.Next()
				if !ok {
					continue
				}
				kb, perr := strconv.ParseUint(string(val), 10, 64)
				if perr != nil {
					continue
				}
				rss, found = kb*1024, true
				return nil
			}
			return nil
		})
		rd.Close()
		if found {
			return rss, nil
		}
	}

	// Fallback: statm field 2 × page size
	if rd, err := reader.Open(fmt.Sprintf("/proc/%d/statm", pid)); err == nil {
		var rss uint64
		var found bool
		_ = rd.Sample(func(buf []byte) error {
			tok := tokenizer.New(buf)
			if !tok.NextLine() {
				return nil
			}
			if _, ok := tok.Next(); !ok { // field 1: total program size, unused here
				return nil
			}
			val, ok := tok.Next()
			if !ok {
				return nil
			}
			pages, perr := strconv.ParseUint(string(val), 10, 64)
			if perr != nil {
				return nil
			}
			rss, found = pages*uint64(PageSize()), true
			return nil
		})
		rd.Close()
		if found {
			return rss, nil
		}
	}
	return 0, ErrNoRSS
}

//
// System-level readers
//

// ReadSystemCPU parses /proc/stat for the aggregate CPU line and returns:
// - active: user + nice + system + irq + softirq + steal
// - total:  active + idle + iowait
//
// These are jiffy counters (monotonic increasing). You need to take
// deltas between samples to compute utilization.
func ReadSystemCPU() (active, total uint64, err error) {
	ticks, e := stat.ReadAggregateCPUTicks(stat.Path)
	if e != nil {
		return 0, 0, e
	}
	if len(ticks) < 8 {
		return 0, 0, ErrNoCPU
	}
	active = ticks[0] + ticks[1] + ticks[2] + ticks[5] + ticks[6] + ticks[7]
	total = active + ticks[3] + ticks[4]
	return active, total, nil
}

//
// Process tree
//

// ReadProcChildren returns the direct child PIDs of a process by reading
// /proc/<pid>/task/*/children files. Each children file lists space-separated
// PIDs for that thread’s children.
//
// Notes:
//   - Kernel 3.5+ exposes this interface.
//   - We deduplicate across threads by using a set.
//   - If no children are found, returns error.
func ReadProcChildren(pid int) ([]int, error) {
	glob := fmt.Sprintf("/proc/%d/task/*/children", pid)
	paths, _ := filepath.Glob(glob)
	set := map[int]struct{}{}
	for _, p := range paths {
		rd, err := reader.Open(p)
		if err != nil {
			continue
		}
		_ = rd.Sample(func(buf []byte) error {
			tok := tokenizer.New(buf)
			for tok.NextLine() {
				for {
					col, ok := tok.Next()
					if !ok {
						break
					}
					if id, err := strconv.Atoi(string(col)); err == nil {
						set[id] = struct{}{}
					}
				}
			}
			return nil
		})
		rd.Close()
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrNoChildren
	}
	return out, nil
}

//go:build linux

package util

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ja7ad/pseudofs/pkg/procfs/meminfo"
	"github.com/ja7ad/pseudofs/pkg/procfs/reader"
)

type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: alpha} }
func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

func Pow(a, b float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Exp(b * math.Log(a))
}

// ParsePIDs expands a list of command-line PID tokens into a flat,
// order-preserving PID slice. Each token is either a bare integer or
// an inclusive "lo..hi" range; blank tokens (after trimming) are
// ignored.
func ParsePIDs(tokens []string) ([]int, error) {
	var out []int
	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if strings.Contains(tok, "..") {
			parts := strings.SplitN(tok, "..", 2)
			lo, loErr := strconv.Atoi(parts[0])
			hi, hiErr := strconv.Atoi(parts[1])
			if loErr != nil || hiErr != nil || lo > hi {
				return nil, fmt.Errorf("bad range: %q", tok)
			}
			for p := lo; p <= hi; p++ {
				out = append(out, p)
			}
			continue
		}
		pid, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("bad pid: %q", tok)
		}
		out = append(out, pid)
	}
	return out, nil
}

// FmtFloat formats v to three decimal places, folding negative-zero
// results ("-0.000") to their unsigned form.
func FmtFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	if s == "-0.000" {
		return "0.000"
	}
	return s
}

// charsToString converts a NUL-terminated byte buffer, such as a
// struct utsname field, into a Go string truncated at the first NUL.
func charsToString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// PidNames resolves each PID's process name (/proc/<pid>/comm),
// skipping any PID that has already exited or has no readable comm.
func PidNames(pids []int) map[int]string {
	names := make(map[int]string, len(pids))
	for _, pid := range pids {
		rd, err := reader.Open(fmt.Sprintf("/proc/%d/comm", pid))
		if err != nil {
			continue
		}
		_ = rd.Sample(func(buf []byte) error {
			if name := strings.TrimSpace(string(buf)); name != "" {
				names[pid] = name
			}
			return nil
		})
		rd.Close()
	}
	return names
}

// SystemSummary reports a short human-readable snapshot of the host:
// hostname, kernel release, a CPU figure, and current memory usage as
// a percentage.
func SystemSummary() (host, kernel, cpus, mem string) {
	host, _ = os.Hostname()

	if b, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		kernel = strings.TrimSpace(string(b))
	}

	n := runtime.NumCPU()
	cpus = fmt.Sprintf("%.2f", float64(n)/float64(n))

	mem = memoryUsagePercent()
	return
}

func memoryUsagePercent() string {
	buf, err := os.ReadFile(meminfo.Path)
	if err != nil {
		return ""
	}

	stream := meminfo.Parser{}.Parse(buf)
	var total, available uint64
	for {
		rec, ok := stream.Next()
		if !ok {
			break
		}
		if rec.Kind != meminfo.DataVolume {
			continue
		}
		switch rec.Label {
		case "MemTotal":
			total = rec.DataVolumeKiB
		case "MemAvailable":
			available = rec.DataVolumeKiB
		}
	}
	if total == 0 {
		return ""
	}
	used := float64(total-available) / float64(total) * 100
	return fmt.Sprintf("%.2f%%", used)
}

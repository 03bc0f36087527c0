//go:build linux

package stat

import (
	"fmt"
	"time"

	"github.com/ja7ad/pseudofs/internal/assertx"
)

// Store is the structure-of-arrays accumulation of /proc/stat samples.
// The ordered sequence of line kinds observed during the schema pass
// is frozen for the life of the sampler; every later push must match
// it exactly, in order.
type Store struct {
	lineKinds []Kind

	AllCPUs   *CPUColumns
	PerThread []*CPUColumns // indexed by thread id, contiguous from 0

	Paging   *PagingColumns
	Swapping *PagingColumns

	Interrupts *InterruptColumns
	SoftIRQs   *InterruptColumns

	ContextSwitches []uint64
	// BootTime is sampled only on the schema pass; it never changes,
	// so later "btime" lines are parsed (to keep the stream aligned)
	// and discarded.
	BootTime time.Time

	ProcessForks      []uint32
	RunnableProcesses []uint16
	BlockedProcesses  []uint16

	n int
}

// LineKinds returns the ordered schema of record kinds captured during
// construction.
func (s *Store) LineKinds() []Kind { return append([]Kind(nil), s.lineKinds...) }

// NewStore builds the schema from the first observed sample.
func NewStore(first *RecordStream) *Store {
	s := &Store{}
	nextThreadID := 0

	for {
		rec, ok := first.Next()
		if !ok {
			break
		}
		s.lineKinds = append(s.lineKinds, rec.Kind)

		switch rec.Kind.Tag {
		case CPUTotal:
			s.AllCPUs = newCPUColumns(rec.ParseCPU())

		case CPUThread:
			if rec.Kind.ThreadID != nextThreadID {
				panic(fmt.Sprintf("stat: cpu thread ids must be contiguous from 0: got cpu%d, expected cpu%d", rec.Kind.ThreadID, nextThreadID))
			}
			s.PerThread = append(s.PerThread, newCPUColumns(rec.ParseCPU()))
			nextThreadID++

		case PagingTotal:
			in, out := rec.ParsePaging()
			s.Paging = newPagingColumns(in, out)

		case PagingSwap:
			in, out := rec.ParsePaging()
			s.Swapping = newPagingColumns(in, out)

		case InterruptsHW:
			total, sources := rec.ParseInterrupts()
			s.Interrupts = newInterruptColumns(total, sources)

		case InterruptsSW:
			total, sources := rec.ParseInterrupts()
			s.SoftIRQs = newInterruptColumns(total, sources)

		case ContextSwitches:
			s.ContextSwitches = []uint64{rec.ParseContextSwitches()}

		case BootTime:
			s.BootTime = rec.ParseBootTime()

		case ProcessForks:
			s.ProcessForks = []uint32{rec.ParseProcessForks()}

		case ProcessesRunnable:
			s.RunnableProcesses = []uint16{rec.ParseProcesses()}

		case ProcessesBlocked:
			s.BlockedProcesses = []uint16{rec.ParseProcesses()}

		case Unsupported:
			assertx.Check(false, "stat: missing support for record %q", rec.Kind.Header)
		}
	}

	s.n = 1
	return s
}

// Push appends one more sample. Every line must match the schema's
// kind, in order; any deviation (missing record, reordered record,
// wrong header, thread renumbering) is an unsupported schema change
// and is fatal.
func (s *Store) Push(stream *RecordStream) {
	for _, kind := range s.lineKinds {
		rec, ok := stream.Next()
		if !ok {
			panic(fmt.Sprintf("stat: fewer records than the established schema, missing %s", kind))
		}
		if rec.Kind != kind {
			panic(fmt.Sprintf("stat: unsupported schema change: expected %s, got %s", kind, rec.Kind))
		}

		switch kind.Tag {
		case CPUTotal:
			s.AllCPUs.push(rec.ParseCPU())

		case CPUThread:
			s.PerThread[kind.ThreadID].push(rec.ParseCPU())

		case PagingTotal:
			in, out := rec.ParsePaging()
			s.Paging.push(in, out)

		case PagingSwap:
			in, out := rec.ParsePaging()
			s.Swapping.push(in, out)

		case InterruptsHW:
			total, sources := rec.ParseInterrupts()
			s.Interrupts.push(total, sources)

		case InterruptsSW:
			total, sources := rec.ParseInterrupts()
			s.SoftIRQs.push(total, sources)

		case ContextSwitches:
			s.ContextSwitches = append(s.ContextSwitches, rec.ParseContextSwitches())

		case BootTime:
			rec.ParseBootTime() // discarded: boot time is sampled once only

		case ProcessForks:
			s.ProcessForks = append(s.ProcessForks, rec.ParseProcessForks())

		case ProcessesRunnable:
			s.RunnableProcesses = append(s.RunnableProcesses, rec.ParseProcesses())

		case ProcessesBlocked:
			s.BlockedProcesses = append(s.BlockedProcesses, rec.ParseProcesses())

		case Unsupported:
			// Tracked structurally only; no values to accumulate.
		}
	}

	if _, more := stream.Next(); more {
		panic("stat: more records present than the established schema")
	}
	s.n++
}

// Len is the number of samples recorded.
func (s *Store) Len() int { return s.n }

//go:build linux

// Package stat implements the sampler for /proc/stat, the most
// intricate of the representative pseudo-files: a variable set of
// lines whose first column (the header) identifies the kind of record
// that follows, each kind with its own column shape.
package stat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ja7ad/pseudofs/internal/assertx"
	"github.com/ja7ad/pseudofs/pkg/procfs/sampler"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
)

// Path is the well-known location of this pseudo-file.
const Path = "/proc/stat"

// Tag identifies which kind of /proc/stat line a Record decodes.
type Tag int

const (
	CPUTotal Tag = iota
	CPUThread
	PagingTotal
	PagingSwap
	InterruptsHW
	ContextSwitches
	BootTime
	ProcessForks
	ProcessesRunnable
	ProcessesBlocked
	InterruptsSW
	Unsupported
)

func (t Tag) String() string {
	switch t {
	case CPUTotal:
		return "CPUTotal"
	case CPUThread:
		return "CPUThread"
	case PagingTotal:
		return "PagingTotal"
	case PagingSwap:
		return "PagingSwap"
	case InterruptsHW:
		return "InterruptsHW"
	case ContextSwitches:
		return "ContextSwitches"
	case BootTime:
		return "BootTime"
	case ProcessForks:
		return "ProcessForks"
	case ProcessesRunnable:
		return "ProcessesRunnable"
	case ProcessesBlocked:
		return "ProcessesBlocked"
	case InterruptsSW:
		return "InterruptsSW"
	default:
		return "Unsupported"
	}
}

// Kind is a fully-identified record kind: the Tag plus whichever side
// data disambiguates it (the CPU thread number, or the unrecognized
// header text).
type Kind struct {
	Tag      Tag
	ThreadID int    // valid when Tag == CPUThread
	Header   string // valid when Tag == Unsupported
}

func (k Kind) String() string {
	switch k.Tag {
	case CPUThread:
		return fmt.Sprintf("CPUThread(%d)", k.ThreadID)
	case Unsupported:
		return fmt.Sprintf("Unsupported(%q)", k.Header)
	default:
		return k.Tag.String()
	}
}

func classifyHeader(header []byte) Kind {
	h := string(header)
	switch {
	case h == "cpu":
		return Kind{Tag: CPUTotal}
	case strings.HasPrefix(h, "cpu"):
		if id, err := strconv.Atoi(h[3:]); err == nil && id >= 0 {
			return Kind{Tag: CPUThread, ThreadID: id}
		}
		return Kind{Tag: Unsupported, Header: h}
	case h == "page":
		return Kind{Tag: PagingTotal}
	case h == "swap":
		return Kind{Tag: PagingSwap}
	case h == "intr":
		return Kind{Tag: InterruptsHW}
	case h == "ctxt":
		return Kind{Tag: ContextSwitches}
	case h == "btime":
		return Kind{Tag: BootTime}
	case h == "processes":
		return Kind{Tag: ProcessForks}
	case h == "procs_running":
		return Kind{Tag: ProcessesRunnable}
	case h == "procs_blocked":
		return Kind{Tag: ProcessesBlocked}
	case h == "softirq":
		return Kind{Tag: InterruptsSW}
	default:
		return Kind{Tag: Unsupported, Header: h}
	}
}

// Record is one classified /proc/stat line. Its data columns are
// pulled lazily through the parse method matching its Kind. The parse
// methods do not check the record's Kind, in any build mode.
type Record struct {
	Kind Kind
	tok  *tokenizer.Tokenizer
}

func (r Record) nextColumn(what string) []byte {
	col, ok := r.tok.Next()
	if !ok {
		panic(fmt.Sprintf("stat: %s record ended before an expected column", what))
	}
	return col
}

func (r Record) assertExhausted(what string) {
	if _, extra := r.tok.Next(); extra {
		assertx.Check(false, "stat: %s record has unexpected extra columns", what)
	}
}

func parseUint(col []byte, bits int, what string) uint64 {
	n, err := strconv.ParseUint(string(col), 10, bits)
	if err != nil {
		panic(fmt.Sprintf("stat: non-numeric %s: %v", what, err))
	}
	return n
}

// RecordStream lazily decodes /proc/stat lines from a tokenizer.
type RecordStream struct {
	tok *tokenizer.Tokenizer
}

// Next decodes the next line's header and returns a Record ready for
// the kind-specific parse call, or (Record{}, false) at end of input.
func (rs *RecordStream) Next() (Record, bool) {
	if !rs.tok.NextLine() {
		return Record{}, false
	}
	header, ok := rs.tok.Next()
	if !ok {
		panic("stat: blank line where a header was expected")
	}
	return Record{Kind: classifyHeader(header), tok: rs.tok}, true
}

// Parser tokenizes a /proc/stat buffer into a RecordStream.
type Parser struct{}

// Parse implements sampler.Parser[*RecordStream].
func (Parser) Parse(buf []byte) *RecordStream {
	return &RecordStream{tok: tokenizer.New(buf)}
}

// Sampler is the instantiated generic sampler for /proc/stat.
type Sampler = sampler.Sampler[*RecordStream, *Store]

// New opens path (typically Path) and performs the schema pass.
func New(path string) (*Sampler, error) {
	return sampler.New[*RecordStream](path, Parser{}, NewStore)
}

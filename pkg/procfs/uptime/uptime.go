//go:build linux

// Package uptime implements the sampler for /proc/uptime: exactly two
// whitespace-separated fractional-seconds fields, wall-clock uptime
// and cumulative CPU idle time.
package uptime

import (
	"time"

	"github.com/ja7ad/pseudofs/internal/assertx"
	"github.com/ja7ad/pseudofs/pkg/procfs/duration"
	"github.com/ja7ad/pseudofs/pkg/procfs/sampler"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
)

// Path is the well-known location of this pseudo-file.
const Path = "/proc/uptime"

// Fields holds one sample's worth of /proc/uptime.
type Fields struct {
	WallClock time.Duration
	CPUIdle   time.Duration
}

// Parser tokenizes /proc/uptime's single line into its two fields.
type Parser struct{}

// Parse implements sampler.Parser[Fields].
func (Parser) Parse(buf []byte) Fields {
	tok := tokenizer.New(buf)
	if !tok.NextLine() {
		panic("uptime: empty file")
	}

	wallCol, ok := tok.Next()
	if !ok {
		panic("uptime: missing wall-clock field")
	}
	idleCol, ok := tok.Next()
	if !ok {
		panic("uptime: missing idle-time field")
	}
	if _, extra := tok.Next(); extra {
		assertx.Check(false, "uptime: unexpected third column")
	}

	wall, err := duration.ParseSeconds(string(wallCol))
	if err != nil {
		panic(err)
	}
	idle, err := duration.ParseSeconds(string(idleCol))
	if err != nil {
		panic(err)
	}

	return Fields{WallClock: wall, CPUIdle: idle}
}

// Store is the structure-of-arrays accumulation of uptime samples.
type Store struct {
	WallClockUptime []time.Duration
	CPUIdleTime     []time.Duration
}

// NewStore builds the store from the first observed sample.
func NewStore(first Fields) *Store {
	return &Store{
		WallClockUptime: []time.Duration{first.WallClock},
		CPUIdleTime:     []time.Duration{first.CPUIdle},
	}
}

// Push appends one more sample. Uptime has no variable schema to
// violate, so Push never panics on content, only ever appends.
func (s *Store) Push(f Fields) {
	s.WallClockUptime = append(s.WallClockUptime, f.WallClock)
	s.CPUIdleTime = append(s.CPUIdleTime, f.CPUIdle)
}

// Len is the number of samples recorded.
func (s *Store) Len() int { return len(s.WallClockUptime) }

// Sampler is the instantiated generic sampler for /proc/uptime.
type Sampler = sampler.Sampler[Fields, *Store]

// New opens path (typically Path) and performs the schema pass.
func New(path string) (*Sampler, error) {
	return sampler.New[Fields](path, Parser{}, NewStore)
}

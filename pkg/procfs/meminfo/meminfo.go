//go:build linux

// Package meminfo implements the sampler for /proc/meminfo. Lines are
// "Label: Value [kB]"; the payload is classified as a data volume (two
// columns, the second being the literal unit "kB"), a bare counter
// (one numeric column), or unsupported (anything else, tracked by
// occurrence count only).
package meminfo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ja7ad/pseudofs/internal/assertx"
	"github.com/ja7ad/pseudofs/pkg/procfs/sampler"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
	"github.com/ja7ad/pseudofs/pkg/types"
)

// Path is the well-known location of this pseudo-file.
const Path = "/proc/meminfo"

// PayloadKind classifies one meminfo line's value.
type PayloadKind int

const (
	// DataVolume is a "<int> kB" payload, stored in kibibytes.
	DataVolume PayloadKind = iota
	// Counter is a bare integer payload.
	Counter
	// Unsupported is anything else: the label didn't end in ':', the
	// payload wasn't numeric, or the unit wasn't "kB".
	Unsupported
)

// Record is one decoded meminfo line.
type Record struct {
	Label         string
	Kind          PayloadKind
	DataVolumeKiB uint64
	CounterValue  uint64
}

// RecordStream lazily decodes meminfo lines from a tokenizer, one line
// per Next call. It borrows the tokenizer's underlying buffer and must
// not outlive the sample that produced it.
type RecordStream struct {
	tok *tokenizer.Tokenizer
}

// Next decodes the next line, or returns (Record{}, false) at end of input.
func (rs *RecordStream) Next() (Record, bool) {
	if !rs.tok.NextLine() {
		return Record{}, false
	}

	labelCol, ok := rs.tok.Next()
	if !ok {
		panic("meminfo: blank line where a label was expected")
	}
	label := string(labelCol)
	if !strings.HasSuffix(label, ":") {
		return Record{Label: label, Kind: Unsupported}, true
	}
	trimmed := label[:len(label)-1]

	valCol, ok := rs.tok.Next()
	if !ok {
		return Record{Label: trimmed, Kind: Unsupported}, true
	}
	n, err := strconv.ParseUint(string(valCol), 10, 64)
	if err != nil {
		return Record{Label: trimmed, Kind: Unsupported}, true
	}

	unitCol, hasUnit := rs.tok.Next()
	switch {
	case hasUnit && string(unitCol) == "kB":
		if _, extra := rs.tok.Next(); extra {
			return Record{Label: trimmed, Kind: Unsupported}, true
		}
		return Record{Label: trimmed, Kind: DataVolume, DataVolumeKiB: n}, true
	case !hasUnit:
		return Record{Label: trimmed, Kind: Counter, CounterValue: n}, true
	default:
		return Record{Label: trimmed, Kind: Unsupported}, true
	}
}

// Parser tokenizes a /proc/meminfo buffer into a RecordStream.
type Parser struct{}

// Parse implements sampler.Parser[*RecordStream].
func (Parser) Parse(buf []byte) *RecordStream {
	return &RecordStream{tok: tokenizer.New(buf)}
}

// Field is one label's structure-of-arrays column, whose active slice
// depends on Kind.
type Field struct {
	Label       string
	Kind        PayloadKind
	DataVolumes []types.Bytes
	Counters    []uint64
	Occurrences int
}

// Store accumulates meminfo samples. The label order and per-label
// payload kind are frozen at construction time (the schema pass).
type Store struct {
	fields []*Field
	n      int
}

// Fields returns the store's per-label columns in schema order.
func (s *Store) Fields() []*Field { return s.fields }

// NewStore builds the schema (label order and payload kinds) from the
// first observed sample.
func NewStore(first *RecordStream) *Store {
	var fields []*Field
	for {
		rec, ok := first.Next()
		if !ok {
			break
		}
		f := &Field{Label: rec.Label, Kind: rec.Kind}
		switch rec.Kind {
		case DataVolume:
			f.DataVolumes = []types.Bytes{types.KiB(rec.DataVolumeKiB)}
		case Counter:
			f.Counters = []uint64{rec.CounterValue}
		case Unsupported:
			f.Occurrences = 1
			assertx.Check(false, "meminfo: missing support for record %q", rec.Label)
		}
		fields = append(fields, f)
	}
	return &Store{fields: fields, n: 1}
}

// Push appends one more sample. Every pushed line must match the
// schema's label and kind in order; a mismatch is a fatal structural
// change (the kernel ABI broke, or a bug). Label lengths are always
// compared (cheap, catches almost every real mismatch); full label
// text is only compared when debug checks are enabled.
func (s *Store) Push(stream *RecordStream) {
	for _, f := range s.fields {
		rec, ok := stream.Next()
		if !ok {
			panic("meminfo: fewer records than the established schema")
		}
		if len(rec.Label) != len(f.Label) {
			panic(fmt.Sprintf("meminfo: unsupported structural meminfo change during sampling: %q became %q", f.Label, rec.Label))
		}
		assertx.Check(rec.Label == f.Label, "meminfo: label changed from %q to %q", f.Label, rec.Label)
		if rec.Kind != f.Kind {
			panic(fmt.Sprintf("meminfo: payload kind changed for %q", f.Label))
		}

		switch f.Kind {
		case DataVolume:
			f.DataVolumes = append(f.DataVolumes, types.KiB(rec.DataVolumeKiB))
		case Counter:
			f.Counters = append(f.Counters, rec.CounterValue)
		case Unsupported:
			f.Occurrences++
		}
	}
	if _, more := stream.Next(); more {
		panic("meminfo: more records than the established schema")
	}
	s.n++
}

// Len is the number of samples recorded.
func (s *Store) Len() int { return s.n }

// Sampler is the instantiated generic sampler for /proc/meminfo.
type Sampler = sampler.Sampler[*RecordStream, *Store]

// New opens path (typically Path) and performs the schema pass.
func New(path string) (*Sampler, error) {
	return sampler.New[*RecordStream](path, Parser{}, NewStore)
}

//go:build linux

// Package diskstats implements the sampler for /proc/diskstats: one
// line per block device, "major minor name" followed by eleven
// cumulative I/O counters. The schema is the ordered (major, minor,
// name) triple per device; a device appearing, disappearing, or being
// renumbered between samples (hot-plug) is an unsupported structural
// change and is fatal, matching the rest of this pipeline's ABI-break
// policy.
package diskstats

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ja7ad/pseudofs/internal/assertx"
	"github.com/ja7ad/pseudofs/pkg/procfs/sampler"
	"github.com/ja7ad/pseudofs/pkg/procfs/tokenizer"
	"github.com/ja7ad/pseudofs/pkg/procfs/version"
)

// Path is the well-known location of this pseudo-file.
const Path = "/proc/diskstats"

// minimum kernel version /proc/diskstats has been present at, and in
// the 11-counter layout this package assumes.
const minMajor, minMinor, minBugfix = 2, 6, 25

// DeviceID identifies a block device the way the kernel does: by its
// (major, minor) number pair and the device name it currently reports.
type DeviceID struct {
	Major, Minor uint32
	Name         string
}

// Record is one device's counters from a single sample.
type Record struct {
	Device DeviceID

	CompletedReads, MergedReads, SectorReads uint64
	// TotalReadTime measures queueing-to-completion latency summed
	// across all reads, not just hardware service time — it includes
	// time a request spent waiting in the I/O scheduler.
	TotalReadTime time.Duration

	CompletedWrites, MergedWrites, SectorWrites uint64
	TotalWriteTime                              time.Duration

	IOInProgress     uint64
	WallClockIOTime  time.Duration
	WeightedIOTime   time.Duration
}

// RecordStream lazily decodes diskstats lines from a tokenizer.
type RecordStream struct {
	tok *tokenizer.Tokenizer
}

func (rs *RecordStream) column() []byte {
	col, ok := rs.tok.Next()
	if !ok {
		panic("diskstats: line ended before all 14 columns were read")
	}
	return col
}

func (rs *RecordStream) uintColumn() uint64 {
	n, err := strconv.ParseUint(string(rs.column()), 10, 64)
	if err != nil {
		panic(fmt.Sprintf("diskstats: non-numeric counter column: %v", err))
	}
	return n
}

// Next decodes the next device line, or returns (Record{}, false) at
// end of input.
func (rs *RecordStream) Next() (Record, bool) {
	if !rs.tok.NextLine() {
		return Record{}, false
	}

	major, err := strconv.ParseUint(string(rs.column()), 10, 32)
	if err != nil {
		panic(fmt.Sprintf("diskstats: non-numeric major: %v", err))
	}
	minor, err := strconv.ParseUint(string(rs.column()), 10, 32)
	if err != nil {
		panic(fmt.Sprintf("diskstats: non-numeric minor: %v", err))
	}
	name := string(rs.column())

	r := Record{Device: DeviceID{Major: uint32(major), Minor: uint32(minor), Name: name}}
	r.CompletedReads = rs.uintColumn()
	r.MergedReads = rs.uintColumn()
	r.SectorReads = rs.uintColumn()
	r.TotalReadTime = time.Duration(rs.uintColumn()) * time.Millisecond
	r.CompletedWrites = rs.uintColumn()
	r.MergedWrites = rs.uintColumn()
	r.SectorWrites = rs.uintColumn()
	r.TotalWriteTime = time.Duration(rs.uintColumn()) * time.Millisecond
	r.IOInProgress = rs.uintColumn()
	r.WallClockIOTime = time.Duration(rs.uintColumn()) * time.Millisecond
	r.WeightedIOTime = time.Duration(rs.uintColumn()) * time.Millisecond

	if _, extra := rs.tok.Next(); extra {
		assertx.Check(false, "diskstats: unexpected 15th column for device %s", name)
	}

	return r, true
}

// Parser tokenizes a /proc/diskstats buffer into a RecordStream.
type Parser struct{}

// Parse implements sampler.Parser[*RecordStream].
func (Parser) Parse(buf []byte) *RecordStream {
	return &RecordStream{tok: tokenizer.New(buf)}
}

// DeviceColumns is one device's structure-of-arrays counter history.
// Overflow wraps silently at the kernel's native counter width;
// consumers that need deltas must account for that themselves.
type DeviceColumns struct {
	Device DeviceID

	CompletedReads, MergedReads, SectorReads []uint64
	TotalReadTime                            []time.Duration

	CompletedWrites, MergedWrites, SectorWrites []uint64
	TotalWriteTime                              []time.Duration

	IOInProgress    []uint64
	WallClockIOTime []time.Duration
	WeightedIOTime  []time.Duration
}

func (d *DeviceColumns) push(r Record) {
	d.CompletedReads = append(d.CompletedReads, r.CompletedReads)
	d.MergedReads = append(d.MergedReads, r.MergedReads)
	d.SectorReads = append(d.SectorReads, r.SectorReads)
	d.TotalReadTime = append(d.TotalReadTime, r.TotalReadTime)
	d.CompletedWrites = append(d.CompletedWrites, r.CompletedWrites)
	d.MergedWrites = append(d.MergedWrites, r.MergedWrites)
	d.SectorWrites = append(d.SectorWrites, r.SectorWrites)
	d.TotalWriteTime = append(d.TotalWriteTime, r.TotalWriteTime)
	d.IOInProgress = append(d.IOInProgress, r.IOInProgress)
	d.WallClockIOTime = append(d.WallClockIOTime, r.WallClockIOTime)
	d.WeightedIOTime = append(d.WeightedIOTime, r.WeightedIOTime)
}

// Store accumulates diskstats samples. The device list (order and
// identity) is frozen at construction time.
type Store struct {
	devices []*DeviceColumns
	n       int
}

// Devices returns the store's per-device columns in schema order.
func (s *Store) Devices() []*DeviceColumns { return s.devices }

// NewStore builds the schema (device order and identity) from the
// first observed sample. It also enforces the minimum kernel version
// this 11-counter diskstats layout requires.
func NewStore(first *RecordStream) *Store {
	if v, err := version.Current(); err != nil {
		panic(fmt.Sprintf("diskstats: unable to determine kernel version: %v", err))
	} else if !v.GreaterEq(minMajor, minMinor, minBugfix) {
		panic(fmt.Sprintf("diskstats: kernel %d.%d.%d predates the minimum supported %d.%d.%d",
			v.Major, v.Minor, v.Bugfix, minMajor, minMinor, minBugfix))
	}

	var devices []*DeviceColumns
	for {
		rec, ok := first.Next()
		if !ok {
			break
		}
		d := &DeviceColumns{Device: rec.Device}
		d.push(rec)
		devices = append(devices, d)
	}
	return &Store{devices: devices, n: 1}
}

// Push appends one more sample. Every device must appear, in order,
// with the exact same (major, minor, name) triple as the schema; any
// deviation means a device was hot-plugged, removed, or renumbered,
// which this pipeline treats as fatal.
func (s *Store) Push(stream *RecordStream) {
	for _, d := range s.devices {
		rec, ok := stream.Next()
		if !ok {
			panic(fmt.Sprintf("diskstats: device %s missing from this sample", d.Device.Name))
		}
		if rec.Device != d.Device {
			panic(fmt.Sprintf("diskstats: device identity changed: schema has %+v, sample has %+v", d.Device, rec.Device))
		}
		d.push(rec)
	}
	if _, more := stream.Next(); more {
		panic("diskstats: more devices present than the established schema")
	}
	s.n++
}

// Len is the number of samples recorded.
func (s *Store) Len() int { return s.n }

// Sampler is the instantiated generic sampler for /proc/diskstats.
type Sampler = sampler.Sampler[*RecordStream, *Store]

// New opens path (typically Path) and performs the schema pass.
func New(path string) (*Sampler, error) {
	return sampler.New[*RecordStream](path, Parser{}, NewStore)
}

//go:build linux

// Package sampler provides the generic binding between a Reader and a
// per-file Store. It replaces the macro-generated, one-sampler-per-file
// boilerplate of the original implementation with a single generic
// type: every pseudo-file sampler in this module (stat, meminfo,
// diskstats, uptime) is a Sampler[R, S] instantiated with that file's
// record-stream type R and store type S.
package sampler

import "github.com/ja7ad/pseudofs/pkg/procfs/reader"

// Parser turns one freshly read pseudo-file buffer into a record
// stream of type R. A Parser is stateless across calls: every Parse
// call re-tokenizes the buffer it is given from scratch.
type Parser[R any] interface {
	Parse(buf []byte) R
}

// Store is a structure-of-arrays sample store for record stream R. New
// is called exactly once, during the schema pass, with the first
// record stream observed; Push is called once per subsequent sample.
// Both New and Push are expected to panic on schema violations, per
// the fatal-on-ABI-break policy described in the store packages.
type Store[R any] interface {
	Push(r R)
	Len() int
}

// Sampler binds one Reader, one Parser and one Store together. New
// performs the schema pass; each call to Sample performs one read and
// one push.
type Sampler[R any, S Store[R]] struct {
	rd     *reader.Reader
	parser Parser[R]
	store  S
}

// New opens path, reads one sample, and builds the store from the
// observed schema via build. The schema pass itself never fails on
// content (a malformed schema panics, per spec), only on I/O.
func New[R any, S Store[R]](path string, parser Parser[R], build func(first R) S) (*Sampler[R, S], error) {
	rd, err := reader.Open(path)
	if err != nil {
		return nil, err
	}

	var store S
	err = rd.Sample(func(buf []byte) error {
		store = build(parser.Parse(buf))
		return nil
	})
	if err != nil {
		rd.Close()
		return nil, err
	}

	return &Sampler[R, S]{rd: rd, parser: parser, store: store}, nil
}

// Sample reads the pseudo-file once more and pushes the result into
// the store. A schema violation during Push is fatal (panics); an I/O
// error is returned normally and leaves the sampler usable for the
// next call.
func (s *Sampler[R, S]) Sample() error {
	return s.rd.Sample(func(buf []byte) error {
		s.store.Push(s.parser.Parse(buf))
		return nil
	})
}

// Store returns the sampler's underlying store for read-only access to
// its per-field sequences.
func (s *Sampler[R, S]) Store() S { return s.store }

// Len is the number of samples held by the store. The schema pass in
// New records the first sample, so Len is one more than the number of
// successful Sample calls.
func (s *Sampler[R, S]) Len() int { return s.store.Len() }

// Close releases the underlying file descriptor.
func (s *Sampler[R, S]) Close() error { return s.rd.Close() }

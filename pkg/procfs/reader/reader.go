//go:build linux

// Package reader implements the reusable pseudo-file reader: open once,
// read-to-end into a buffer that is reused across samples, hand the
// buffer to a parser callback, then clear it and rewind the file to
// offset 0 so the kernel regenerates fresh content on the next read.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Reader owns one open pseudo-file and one reusable text buffer.
type Reader struct {
	file *os.File
	path string
	buf  []byte
}

// defaultBufSize is the fallback growth seed when stat(2) cannot
// supply a useful size hint (pseudo-files commonly report 0).
const defaultBufSize = 4096

// Open opens path for reading. The file stays open until Close.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reader: open %s: %w", path, err)
	}

	size := defaultBufSize
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err == nil && st.Size > 0 {
		// stat(2) on procfs is a hint, not a contract: the kernel
		// regenerates content on every read and the reported size can
		// be stale or zero. A nonzero value still saves a grow-and-copy
		// on the very first sample.
		size = int(st.Size)
	}

	return &Reader{file: f, path: path, buf: make([]byte, 0, size)}, nil
}

// Sample performs one full read-to-end of the pseudo-file, invokes fn
// with the freshly read bytes, then clears the buffer and seeks the
// file back to offset 0 regardless of whether fn returned an error.
// A failed read also clears the buffer and rewinds before returning.
// The slice passed to fn aliases the reader's internal buffer and must
// not be retained past the call.
func (r *Reader) Sample(fn func(buf []byte) error) error {
	if err := r.readToEnd(); err != nil {
		r.buf = r.buf[:0]
		_, _ = r.file.Seek(0, 0)
		return err
	}

	fnErr := fn(r.buf)

	r.buf = r.buf[:0]
	if _, err := r.file.Seek(0, 0); err != nil {
		if fnErr != nil {
			return fnErr
		}
		return fmt.Errorf("reader: seek %s: %w", r.path, err)
	}

	return fnErr
}

func (r *Reader) readToEnd() error {
	for {
		if len(r.buf) == cap(r.buf) {
			r.buf = append(r.buf, 0)[:len(r.buf)]
		}
		n, err := r.file.Read(r.buf[len(r.buf):cap(r.buf)])
		r.buf = r.buf[:len(r.buf)+n]
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reader: read %s: %w", r.path, err)
		}
	}
}

// Close releases the underlying file descriptor.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Path returns the pseudo-file path this reader was opened against.
func (r *Reader) Path() string { return r.path }

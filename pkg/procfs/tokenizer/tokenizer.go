// Package tokenizer splits ASCII pseudo-file text into lines and, within
// each line, whitespace-separated columns, in a single pass.
//
// A naive two-pass split (first find line boundaries, then split each
// line on whitespace) walks the text twice. Since this is the hottest
// path in the whole sampling pipeline, Tokenizer fuses both passes into
// one byte-level scan with a single byte of lookback. Input is assumed
// to be ASCII; a non-ASCII byte trips a debug-mode assertion rather
// than silently producing garbage.
package tokenizer

import "github.com/ja7ad/pseudofs/internal/assertx"

type status int

const (
	atLineStart status = iota
	insideLine
	atInputEnd
)

// Tokenizer is a single-pass cursor over a byte slice. Callers
// drive it with NextLine to move between lines and Next to iterate
// columns inside the current line; Next is only valid between a
// NextLine call returning true and its first nil result.
type Tokenizer struct {
	data   []byte
	pos    int
	status status
}

// New wraps data for tokenization. The caller must not mutate data
// while the Tokenizer is in use; the returned column slices alias it.
func New(data []byte) *Tokenizer {
	t := &Tokenizer{data: data}
	if len(data) == 0 {
		t.status = atInputEnd
	} else {
		t.status = atLineStart
	}
	return t
}

func (t *Tokenizer) isEmpty() bool { return t.pos >= len(t.data) }

func (t *Tokenizer) nextByte() (byte, bool) {
	if t.isEmpty() {
		return 0, false
	}
	b := t.data[t.pos]
	assertx.Check(b < 0x80, "tokenizer: non-ASCII byte 0x%02x at offset %d", b, t.pos)
	t.pos++
	return b, true
}

func (t *Tokenizer) prevIndex() int { return t.pos - 1 }
func (t *Tokenizer) back()          { t.pos-- }

// NextLine advances past whatever remains of the current line (if any)
// and positions the cursor at the start of the next one. It returns
// false only once the input is exhausted.
func (t *Tokenizer) NextLine() bool {
	switch t.status {
	case atLineStart:
		t.status = insideLine
		return true

	case insideLine:
		for {
			b, ok := t.nextByte()
			if !ok {
				t.status = atInputEnd
				return false
			}
			if b == '\n' {
				if t.isEmpty() {
					t.status = atInputEnd
					return false
				}
				return true
			}
		}

	default: // atInputEnd
		return false
	}
}

// Next returns the next whitespace-separated column of the current
// line, or (nil, false) once the line ends (newline or end of input).
// Calling Next before the first NextLine, or again without an
// intervening NextLine after a (nil, false) result, is a usage error
// and panics when debug checks are enabled.
func (t *Tokenizer) Next() ([]byte, bool) {
	assertx.Check(t.status == insideLine, "tokenizer: Next called outside of a line")

	var firstIdx int
	for {
		b, ok := t.nextByte()
		if !ok {
			t.status = atInputEnd
			return nil, false
		}
		switch b {
		case ' ':
			continue
		case '\n':
			if t.isEmpty() {
				t.status = atInputEnd
			} else {
				t.status = atLineStart
			}
			return nil, false
		default:
			firstIdx = t.prevIndex()
		}
		break
	}

	for {
		b, ok := t.nextByte()
		if !ok {
			return t.data[firstIdx:], true
		}
		switch b {
		case ' ':
			return t.data[firstIdx:t.prevIndex()], true
		case '\n':
			last := t.prevIndex()
			t.back() // re-expose the newline so NextLine/Next can see it
			return t.data[firstIdx:last], true
		}
	}
}

// ColCount consumes the remaining columns of the current line and
// returns how many there were, without consuming the rest of the input.
func (t *Tokenizer) ColCount() int {
	n := 0
	for {
		if _, ok := t.Next(); !ok {
			return n
		}
		n++
	}
}

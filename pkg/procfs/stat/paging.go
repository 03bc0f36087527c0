//go:build linux

package stat

// ParsePaging reads this record's two counters: pages swapped in,
// then pages swapped out. Used for both the "page" and "swap" lines,
// which share this exact shape.
func (r Record) ParsePaging() (in, out uint64) {
	in = parseUint(r.nextColumn("paging"), 64, "paging in-counter")
	out = parseUint(r.nextColumn("paging"), 64, "paging out-counter")
	r.assertExhausted("paging")
	return in, out
}

// PagingColumns is the structure-of-arrays history of one paging
// record ("page" or "swap").
type PagingColumns struct {
	In, Out []uint64
}

func newPagingColumns(in, out uint64) *PagingColumns {
	return &PagingColumns{In: []uint64{in}, Out: []uint64{out}}
}

func (p *PagingColumns) push(in, out uint64) {
	p.In = append(p.In, in)
	p.Out = append(p.Out, out)
}

// Len is the number of samples recorded.
func (p *PagingColumns) Len() int { return len(p.In) }

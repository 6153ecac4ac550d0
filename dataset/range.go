package dataset

import "fmt"

// coverageRange is a contiguous span of parsed bytes and the rows found in
// it. The span only ever grows at its ends: append extends it forward,
// prepend extends it backward, so it never develops internal holes.
type coverageRange struct {
	firstByte int64
	byteCount int64

	// Index of the first stored row. Exact when derived from contiguous
	// coverage reaching byte 0, otherwise an estimate maintained by the
	// owning cache.
	firstRow      int64
	firstRowExact bool

	// Stored rows in file order. Ignored rows (no non-empty cell) are not
	// stored; their bytes still count toward byteCount.
	rows [][]string

	// Bytes belonging to stored rows only.
	rowByteCount int64
}

// nextByte is the first byte past the span.
func (r *coverageRange) nextByte() int64 {
	return r.firstByte + r.byteCount
}

// nextRow is the index one past the last stored row.
func (r *coverageRange) nextRow() int64 {
	return r.firstRow + int64(len(r.rows))
}

// append grows the span forward by byteCount bytes. cells is nil for an
// ignored row.
func (r *coverageRange) append(byteOffset, byteCount int64, cells []string) error {
	if byteOffset != r.nextByte() {
		return fmt.Errorf("%w: append at byte %d, coverage ends at %d", ErrInconsistentState, byteOffset, r.nextByte())
	}

	r.byteCount += byteCount
	if cells != nil {
		r.rows = append(r.rows, cells)
		r.rowByteCount += byteCount
	}
	return nil
}

// prepend grows the span backward. A real row pushes firstRow down by one.
func (r *coverageRange) prepend(byteOffset, byteCount int64, cells []string) error {
	if byteOffset+byteCount != r.firstByte {
		return fmt.Errorf("%w: prepend ending at byte %d, coverage starts at %d", ErrInconsistentState, byteOffset+byteCount, r.firstByte)
	}

	r.firstByte = byteOffset
	r.byteCount += byteCount
	if cells != nil {
		r.rows = append([][]string{cells}, r.rows...)
		r.rowByteCount += byteCount
		r.firstRow--
	}
	return nil
}

// merge absorbs the immediately following range. The caller is responsible
// for removing it from the owning list.
func (r *coverageRange) merge(following *coverageRange) error {
	if following.firstByte != r.nextByte() {
		return fmt.Errorf("%w: merge of range at byte %d into range ending at %d", ErrInconsistentState, following.firstByte, r.nextByte())
	}

	r.byteCount += following.byteCount
	r.rows = append(r.rows, following.rows...)
	r.rowByteCount += following.rowByteCount
	return nil
}

// row returns the stored cells at the given position within the range.
func (r *coverageRange) row(local int64) ([]string, bool) {
	if local < 0 || local >= int64(len(r.rows)) {
		return nil, false
	}
	return r.rows[local], true
}

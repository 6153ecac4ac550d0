package dataset

import (
	"fmt"
	"math"
	"slices"

	"github.com/YLivay/csview/reader"
)

// cache is the exact-only bookkeeping of which byte spans of the file have
// been parsed and which rows were found in them. It owns one serial range
// anchored at byte 0 (header included) plus zero or more out-of-order
// random ranges, kept sorted and non-overlapping. Adjacent ranges are
// never left contiguous: contiguity triggers an immediate merge.
//
// The cache never estimates; that is the estimator's job. Lookups resolve
// only positions whose row index is exactly known.
//
// TODO: evict random ranges (never the serial range) once a
// max-cached-bytes option exists, so long sessions on huge files don't
// grow without bound.
type cache struct {
	byteLength      int64
	columnNames     []string
	headerByteCount int64
	dialect         reader.Dialect

	serial *coverageRange
	random []*coverageRange
}

// newCacheFromHeader seeds the serial range with the header as an ignored
// span [0, headerByteCount).
func newCacheFromHeader(header reader.Row, dialect reader.Dialect, byteLength int64) (*cache, error) {
	if len(header.Cells) == 0 {
		return nil, fmt.Errorf("%w: header has no columns", ErrInvalidArgument)
	}
	if header.ByteOffset != 0 {
		return nil, fmt.Errorf("%w: header starts at byte %d", ErrInvalidArgument, header.ByteOffset)
	}
	if header.ByteCount <= 0 || header.ByteCount > byteLength {
		return nil, fmt.Errorf("%w: header spans %d bytes of a %d byte file", ErrInvalidArgument, header.ByteCount, byteLength)
	}

	c := &cache{
		byteLength:      byteLength,
		columnNames:     slices.Clone(header.Cells),
		headerByteCount: header.ByteCount,
		dialect:         dialect,
		serial:          &coverageRange{firstRowExact: true},
	}
	if err := c.serial.append(0, header.ByteCount, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// complete reports whether the serial range covers the whole file.
func (c *cache) complete() bool {
	return c.serial.nextByte() == c.byteLength
}

func (c *cache) columnCount() int64 {
	return int64(len(c.columnNames))
}

// allRanges returns the serial range followed by the random ranges, in
// byte order.
func (c *cache) allRanges() []*coverageRange {
	ranges := make([]*coverageRange, 0, len(c.random)+1)
	ranges = append(ranges, c.serial)
	return append(ranges, c.random...)
}

// storeResult describes what a store call did.
type storeResult struct {
	// newly is false for an exact duplicate of an already covered span.
	newly bool
	// ignored is true when the span held no data row.
	ignored bool
	// row is the index assigned to the stored row; exact only if rowExact.
	row      int64
	rowExact bool
}

// store records one parsed row span. cells is nil for an ignored row.
// firstRowHint is the estimated index of the row in case the span opens a
// new random range; it is re-anchored on the next estimator refresh.
//
// The span is classified against the existing ranges, scanned as adjacent
// (left, right) pairs: an exactly covered span is a duplicate no-op, a
// span partially overlapping a boundary is an InconsistentState fault, a
// span adjoining a neighbor extends it (merging when that closes the gap
// between two ranges), and an isolated span opens a new random range at
// its sorted position.
func (c *cache) store(byteOffset, byteCount int64, cells []string, firstRowHint int64) (storeResult, error) {
	var res storeResult
	if byteOffset < 0 || byteCount <= 0 {
		return res, fmt.Errorf("%w: byte span [%d, %d)", ErrInvalidArgument, byteOffset, byteOffset+byteCount)
	}
	end := byteOffset + byteCount
	if end > c.byteLength {
		return res, fmt.Errorf("%w: byte span [%d, %d) exceeds file length %d", ErrOutOfBounds, byteOffset, end, c.byteLength)
	}

	ranges := c.allRanges()
	for i, left := range ranges {
		var right *coverageRange
		if i+1 < len(ranges) {
			right = ranges[i+1]
		}

		// Entirely inside left: an exact duplicate.
		if byteOffset >= left.firstByte && end <= left.nextByte() {
			res.ignored = cells == nil
			return res, nil
		}

		// Straddling left's end.
		if byteOffset < left.nextByte() {
			return res, fmt.Errorf("%w: span [%d, %d) straddles coverage ending at %d", ErrInconsistentState, byteOffset, end, left.nextByte())
		}

		// Adjoining left's end: append, then close the gap to right if
		// this store filled it exactly.
		if byteOffset == left.nextByte() {
			if err := left.append(byteOffset, byteCount, cells); err != nil {
				return res, err
			}
			res.newly = true
			if cells == nil {
				res.ignored = true
			} else {
				res.row = left.nextRow() - 1
				res.rowExact = left.firstRowExact
			}
			if right != nil && left.nextByte() == right.firstByte {
				if err := c.mergeInto(left, right); err != nil {
					return res, err
				}
			}
			return res, c.checkConsistent()
		}

		if right == nil {
			// Isolated span in the gap between the last range and EOF.
			c.insertRandom(i, byteOffset, byteCount, cells, firstRowHint)
			res.newly = true
			res.ignored = cells == nil
			res.row = firstRowHint
			return res, c.checkConsistent()
		}

		// The span belongs to a later pair.
		if byteOffset >= right.firstByte {
			continue
		}

		// Straddling right's start.
		if end > right.firstByte {
			return res, fmt.Errorf("%w: span [%d, %d) straddles coverage starting at %d", ErrInconsistentState, byteOffset, end, right.firstByte)
		}

		// Adjoining right's start: prepend.
		if end == right.firstByte {
			if err := right.prepend(byteOffset, byteCount, cells); err != nil {
				return res, err
			}
			res.newly = true
			if cells == nil {
				res.ignored = true
			} else {
				res.row = right.firstRow
				res.rowExact = right.firstRowExact
			}
			return res, c.checkConsistent()
		}

		// Isolated span with a gap on both sides.
		c.insertRandom(i, byteOffset, byteCount, cells, firstRowHint)
		res.newly = true
		res.ignored = cells == nil
		res.row = firstRowHint
		return res, c.checkConsistent()
	}

	return res, fmt.Errorf("%w: span [%d, %d) was not classified", ErrInconsistentState, byteOffset, end)
}

// insertRandom opens a new random range holding a single span. i is the
// index of the range preceding it in allRanges order, which is also its
// insertion position within the random list.
func (c *cache) insertRandom(i int, byteOffset, byteCount int64, cells []string, firstRowHint int64) {
	nr := &coverageRange{firstByte: byteOffset, firstRow: firstRowHint}
	// Seeding a fresh range never fails: the span adjoins its empty start.
	_ = nr.append(byteOffset, byteCount, cells)
	c.random = slices.Insert(c.random, i, nr)
}

// mergeInto merges right into left and drops right from the random list.
func (c *cache) mergeInto(left, right *coverageRange) error {
	if err := left.merge(right); err != nil {
		return err
	}
	idx := slices.Index(c.random, right)
	if idx < 0 {
		return fmt.Errorf("%w: merged range not found in the random list", ErrInconsistentState)
	}
	c.random = slices.Delete(c.random, idx, idx+1)
	return nil
}

// checkConsistent verifies the structural invariants that no single store
// should ever be able to break. A violation is a programmer fault, not a
// user error.
func (c *cache) checkConsistent() error {
	if c.serial.firstByte != 0 {
		return fmt.Errorf("%w: serial range starts at byte %d", ErrInconsistentState, c.serial.firstByte)
	}
	if c.serial.nextByte() > c.byteLength {
		return fmt.Errorf("%w: serial range ends at byte %d of a %d byte file", ErrInconsistentState, c.serial.nextByte(), c.byteLength)
	}
	if c.complete() && len(c.random) > 0 {
		return fmt.Errorf("%w: cache is complete but %d random ranges remain", ErrInconsistentState, len(c.random))
	}
	return nil
}

// getCell returns the stored value at (row, column), restricted to rows
// whose index is exactly known. Missing cells of a ragged row read as the
// empty string.
func (c *cache) getCell(row, column int64) (string, bool, error) {
	if row < 0 || column < 0 {
		return "", false, fmt.Errorf("%w: cell (%d, %d)", ErrInvalidArgument, row, column)
	}
	if column >= c.columnCount() {
		return "", false, fmt.Errorf("%w: column %d of %d", ErrColumnOutOfRange, column, c.columnCount())
	}

	for _, r := range c.allRanges() {
		if !r.firstRowExact {
			continue
		}
		if cells, ok := r.row(row - r.firstRow); ok {
			if column >= int64(len(cells)) {
				return "", true, nil
			}
			return cells[column], true, nil
		}
	}
	return "", false, nil
}

// getRowNumber confirms presence only: it resolves iff the row is exactly
// stored. No estimation happens here.
func (c *cache) getRowNumber(row int64) (int64, bool) {
	if row < 0 {
		return 0, false
	}
	for _, r := range c.allRanges() {
		if !r.firstRowExact {
			continue
		}
		if _, ok := r.row(row - r.firstRow); ok {
			return row, true
		}
	}
	return 0, false
}

// storedRowStats totals the stored (non-ignored) rows and their bytes
// across all ranges.
func (c *cache) storedRowStats() (rows, rowBytes int64) {
	for _, r := range c.allRanges() {
		rows += int64(len(r.rows))
		rowBytes += r.rowByteCount
	}
	return rows, rowBytes
}

// reestimateRandomRows re-anchors the estimated first row of every random
// range from the committed bytes-per-row average. The estimator calls this
// only when the damped average actually changes, so estimates stay put
// between refreshes (prepends decrement them exactly in the meantime).
func (c *cache) reestimateRandomRows(avg float64) {
	if avg <= 0 {
		return
	}
	prev := c.serial
	for _, r := range c.random {
		gap := float64(r.firstByte - prev.nextByte())
		est := prev.nextRow() + int64(math.Round(gap/avg))
		// Range boundaries sit on row boundaries, so a non-empty gap holds
		// at least the rows already counted by prev.
		if est < prev.nextRow() {
			est = prev.nextRow()
		}
		r.firstRow = est
		prev = r
	}
}

package dataset

import (
	"fmt"
	"math"
)

// estInt is a row index or byte offset that is either directly observed
// from contiguous coverage or derived from the bytes-per-row average.
type estInt struct {
	value      int64
	isEstimate bool
}

// rowStatus is what the estimator knows about a row index right now. One
// variant per case, each carrying exactly the data its case needs, instead
// of parallel isEstimate booleans that can drift out of sync.
type rowStatus interface {
	isRowStatus()
}

// statusStored: the row is in the cache.
type statusStored struct {
	rng      *coverageRange
	local    int64
	cells    []string
	firstRow estInt
}

// statusMissing: the row is not stored yet; byteOffset is where a fetch
// for it should start. right is nil when the gap extends to EOF.
type statusMissing struct {
	left       *coverageRange
	right      *coverageRange
	byteOffset estInt
}

// statusBeyondEOF: the row index is at or past the end of the file, as
// surely as the current row count allows.
type statusBeyondEOF struct {
	isEstimate bool
}

// statusUnknown: no average exists yet and the row falls in a gap that
// cannot be located.
type statusUnknown struct{}

func (statusStored) isRowStatus()    {}
func (statusMissing) isRowStatus()   {}
func (statusBeyondEOF) isRowStatus() {}
func (statusUnknown) isRowStatus()   {}

// estimator wraps a cache with the single bidirectional row/byte mapping.
// It maintains a damped average bytes-per-row figure over what is stored
// and derives the externally visible row count from it. It reads the
// cache's ranges but never manipulates them itself; re-anchoring of range
// estimates goes through the cache's own reestimateRandomRows.
type estimator struct {
	cache *cache

	// Damped bytes-per-row average. Zero until the first data row is
	// stored. Moot once exact is set: the cache is complete and the row
	// count is counted, not estimated.
	avg   float64
	exact bool
}

// refresh recomputes the average over everything stored and reports
// whether the externally visible row count may have changed. Relative
// changes of 1% or less are swallowed so a batch of stores cannot make
// the visible count jitter. Called once per fetch batch, never per row.
func (e *estimator) refresh() bool {
	if e.cache.complete() {
		if e.exact {
			return false
		}
		e.exact = true
		return true
	}

	rows, rowBytes := e.cache.storedRowStats()
	if rows == 0 {
		return false
	}

	avg := float64(rowBytes) / float64(rows)
	if e.avg > 0 && math.Abs(avg-e.avg)/e.avg <= 0.01 {
		return false
	}

	e.avg = avg
	e.cache.reestimateRandomRows(avg)
	return true
}

// numRows is the canonical row-count signal: the exact stored count once
// the cache is complete, an estimate from the average otherwise.
func (e *estimator) numRows() int64 {
	if e.exact {
		return int64(len(e.cache.serial.rows))
	}
	if e.avg <= 0 {
		return 0
	}
	body := e.cache.byteLength - e.cache.headerByteCount
	return int64(math.Round(float64(body) / e.avg))
}

func (e *estimator) isEstimated() bool {
	return !e.exact
}

// maxNumRows is the permissive upper bound for validating row queries that
// might still resolve: unbounded while the count is an estimate.
func (e *estimator) maxNumRows() int64 {
	if e.exact {
		return e.numRows()
	}
	return math.MaxInt64
}

// getStatus classifies a row index by walking the ranges as adjacent
// (left, right) pairs. snapToEOF lets a trailing range that touches the
// file's last byte have its first row back-computed from the row count;
// the end of file is the one place where estimate drift can be corrected.
func (e *estimator) getStatus(row int64, snapToEOF bool) rowStatus {
	if row < 0 {
		return statusUnknown{}
	}

	ranges := e.cache.allRanges()
	for i, left := range ranges {
		var right *coverageRange
		if i+1 < len(ranges) {
			right = ranges[i+1]
		}

		first := e.rangeFirstRow(left, right == nil, snapToEOF)

		// Inside left's stored rows.
		if row < first.value+int64(len(left.rows)) {
			local := row - first.value
			cells, ok := left.row(local)
			if !ok {
				// Row precedes this range despite the walk's bookkeeping;
				// estimates around the gap disagree. Treat as unlocatable.
				return statusUnknown{}
			}
			return statusStored{rng: left, local: local, cells: cells, firstRow: first}
		}

		nextRow := first.value + int64(len(left.rows))
		nextByte := left.nextByte()

		// Nothing after left: every greater row is beyond EOF.
		if nextByte >= e.cache.byteLength {
			return statusBeyondEOF{isEstimate: !e.cache.complete()}
		}

		// The very next row to be parsed after left starts at a byte
		// offset that is known exactly.
		if row == nextRow {
			return statusMissing{left: left, right: right, byteOffset: estInt{nextByte, false}}
		}

		if e.avg <= 0 {
			// No average yet: the gap past left's boundary is unreachable.
			return statusUnknown{}
		}

		estOffset := nextByte + int64(math.Round(float64(row-nextRow)*e.avg))

		if right == nil {
			if estOffset >= e.cache.byteLength {
				return statusBeyondEOF{isEstimate: true}
			}
			return statusMissing{left: left, byteOffset: estInt{estOffset, true}}
		}

		rightFirst := e.rangeFirstRow(right, i+1 == len(ranges)-1, snapToEOF)
		if row < rightFirst.value {
			// Keep the guess inside the gap.
			if estOffset >= right.firstByte {
				estOffset = right.firstByte - 1
			}
			return statusMissing{left: left, right: right, byteOffset: estInt{estOffset, true}}
		}
	}

	return statusUnknown{}
}

// rangeFirstRow reports a range's first row index, back-computing a
// trailing range that reaches EOF from the authoritative row count when
// snapping is requested.
func (e *estimator) rangeFirstRow(r *coverageRange, trailing, snapToEOF bool) estInt {
	if snapToEOF && trailing && !r.firstRowExact && r.nextByte() == e.cache.byteLength {
		return estInt{e.numRows() - int64(len(r.rows)), e.isEstimated()}
	}
	return estInt{r.firstRow, !r.firstRowExact}
}

// getCell returns a value only for rows that are actually stored; cell
// queries are never allowed to guess.
func (e *estimator) getCell(row, column int64) (string, bool, error) {
	if column < 0 || column >= e.cache.columnCount() {
		return "", false, fmt.Errorf("%w: column %d of %d", ErrColumnOutOfRange, column, e.cache.columnCount())
	}

	st, ok := e.getStatus(row, true).(statusStored)
	if !ok {
		return "", false, nil
	}
	if column >= int64(len(st.cells)) {
		return "", true, nil
	}
	return st.cells[column], true, nil
}

// getRowNumber is allowed to guess: any row inside the current count
// resolves to itself, flagged as an estimate unless its range is exactly
// indexed.
func (e *estimator) getRowNumber(row int64) (estInt, bool) {
	switch st := e.getStatus(row, true).(type) {
	case statusStored:
		return estInt{row, st.firstRow.isEstimate}, true
	case statusBeyondEOF:
		return estInt{}, false
	default:
		if row >= 0 && row < e.numRows() {
			return estInt{row, true}, true
		}
		return estInt{}, false
	}
}

// guessFirstMissingRow locates the first row at or after minRow that is
// not stored, along with the fetch hint for it. Used by the orchestrator
// to pick fetch start points.
func (e *estimator) guessFirstMissingRow(minRow int64) (int64, statusMissing, bool) {
	row := minRow
	if row < 0 {
		row = 0
	}
	for {
		switch st := e.getStatus(row, true).(type) {
		case statusStored:
			// Skip past the stored block.
			row = st.firstRow.value + int64(len(st.rng.rows))
		case statusMissing:
			return row, st, true
		default:
			return 0, statusMissing{}, false
		}
	}
}

// guessLastMissingRow locates the last row at or before maxRow that is not
// stored. Used by the orchestrator to pick fetch stop points.
func (e *estimator) guessLastMissingRow(maxRow int64) (int64, bool) {
	row := maxRow
	for row >= 0 {
		switch st := e.getStatus(row, true).(type) {
		case statusStored:
			row = st.firstRow.value - 1
		case statusMissing:
			return row, true
		case statusBeyondEOF:
			last := e.numRows() - 1
			if last < row {
				row = last
			} else {
				row--
			}
		default:
			return 0, false
		}
	}
	return 0, false
}

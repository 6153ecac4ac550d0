package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoverageRange_AppendRequiresContiguity(t *testing.T) {
	r := &coverageRange{firstByte: 10, byteCount: 5}

	err := r.append(20, 5, []string{"x"})
	assert.ErrorIs(t, err, ErrInconsistentState)

	assert.NoError(t, r.append(15, 5, []string{"x"}))
	assert.EqualValues(t, 20, r.nextByte())
}

func TestCoverageRange_IgnoredBytesCountedSeparately(t *testing.T) {
	r := &coverageRange{firstByte: 0}

	assert.NoError(t, r.append(0, 4, nil))
	assert.NoError(t, r.append(4, 6, []string{"x", "y"}))

	assert.EqualValues(t, 10, r.byteCount)
	assert.EqualValues(t, 6, r.rowByteCount)
	assert.Len(t, r.rows, 1)
}

func TestCoverageRange_PrependTracksFirstRow(t *testing.T) {
	r := &coverageRange{firstByte: 20, firstRow: 5}
	assert.NoError(t, r.append(20, 5, []string{"b"}))

	err := r.prepend(10, 5, []string{"a"})
	assert.ErrorIs(t, err, ErrInconsistentState)

	assert.NoError(t, r.prepend(15, 5, []string{"a"}))
	assert.EqualValues(t, 15, r.firstByte)
	assert.EqualValues(t, 4, r.firstRow)
	assert.EqualValues(t, []string{"a"}, r.rows[0])

	// An ignored prepend grows the span but not the row index.
	assert.NoError(t, r.prepend(12, 3, nil))
	assert.EqualValues(t, 4, r.firstRow)
	assert.Len(t, r.rows, 2)
}

func TestCoverageRange_MergeConcatenates(t *testing.T) {
	left := &coverageRange{firstByte: 0}
	assert.NoError(t, left.append(0, 5, []string{"a"}))
	right := &coverageRange{firstByte: 5, firstRow: 1}
	assert.NoError(t, right.append(5, 5, []string{"b"}))

	assert.NoError(t, left.merge(right))
	assert.EqualValues(t, 10, left.byteCount)
	assert.Len(t, left.rows, 2)
	assert.EqualValues(t, 2, left.nextRow())

	gapped := &coverageRange{firstByte: 20}
	assert.ErrorIs(t, left.merge(gapped), ErrInconsistentState)
}

func TestCoverageRange_RowLookup(t *testing.T) {
	r := &coverageRange{firstByte: 0}
	assert.NoError(t, r.append(0, 5, []string{"a"}))

	cells, ok := r.row(0)
	assert.True(t, ok)
	assert.EqualValues(t, []string{"a"}, cells)

	_, ok = r.row(1)
	assert.False(t, ok)
	_, ok = r.row(-1)
	assert.False(t, ok)
}

package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowScanner_TracksByteSpans(t *testing.T) {
	src := createTestSource(t, "a,b\ncc,dd\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 10}, Options{Delimiter: ','})
	assert.Len(t, rows, 2)
	assert.EqualValues(t, []string{"a", "b"}, rows[0].Cells)
	assert.EqualValues(t, 0, rows[0].ByteOffset)
	assert.EqualValues(t, 4, rows[0].ByteCount)
	assert.EqualValues(t, []string{"cc", "dd"}, rows[1].Cells)
	assert.EqualValues(t, 4, rows[1].ByteOffset)
	assert.EqualValues(t, 6, rows[1].ByteCount)
}

func TestRowScanner_QuotedDelimiter(t *testing.T) {
	src := createTestSource(t, "\"x,y\",z\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 8}, Options{Delimiter: ','})
	assert.Len(t, rows, 1)
	assert.EqualValues(t, []string{"x,y", "z"}, rows[0].Cells)
	assert.EqualValues(t, 8, rows[0].ByteCount)
}

func TestRowScanner_QuotedNewline(t *testing.T) {
	src := createTestSource(t, "\"a\nb\",c\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 8}, Options{Delimiter: ','})
	assert.Len(t, rows, 1)
	assert.EqualValues(t, []string{"a\nb", "c"}, rows[0].Cells)
	assert.EqualValues(t, 8, rows[0].ByteCount)
}

func TestRowScanner_EscapedQuotes(t *testing.T) {
	src := createTestSource(t, "\"he said \"\"hi\"\"\",x\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 19}, Options{Delimiter: ','})
	assert.Len(t, rows, 1)
	assert.EqualValues(t, []string{"he said \"hi\"", "x"}, rows[0].Cells)
}

func TestRowScanner_CRLFTerminators(t *testing.T) {
	src := createTestSource(t, "a,b\r\nc,d\r\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 10}, Options{Delimiter: ','})
	assert.Len(t, rows, 2)
	assert.EqualValues(t, []string{"a", "b"}, rows[0].Cells)
	assert.EqualValues(t, 5, rows[0].ByteCount)
	assert.EqualValues(t, []string{"c", "d"}, rows[1].Cells)
	assert.EqualValues(t, 5, rows[1].ByteCount)
}

func TestRowScanner_UnterminatedFinalRowAtEOF(t *testing.T) {
	src := createTestSource(t, "a,b\nc,d")

	rows := scanAll(t, src, Window{Offset: 0, Length: 7}, Options{Delimiter: ','})
	assert.Len(t, rows, 2)
	assert.EqualValues(t, []string{"c", "d"}, rows[1].Cells)
	assert.EqualValues(t, 4, rows[1].ByteOffset)
	assert.EqualValues(t, 3, rows[1].ByteCount)
}

func TestRowScanner_DropsRowCutOffByWindow(t *testing.T) {
	src := createTestSource(t, "aaaa,bbbb\ncccc,dddd\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 15}, Options{Delimiter: ','})
	assert.Len(t, rows, 1)
	assert.EqualValues(t, []string{"aaaa", "bbbb"}, rows[0].Cells)
}

func TestRowScanner_WindowStartingMidRow(t *testing.T) {
	src := createTestSource(t, "aaaa,bbbb\ncccc,dddd\n")

	rows := scanAll(t, src, Window{Offset: 2, Length: 18}, Options{Delimiter: ','})
	assert.Len(t, rows, 2)
	// The first yielded row is the tail of a row the window cut into; the
	// caller is expected to discard it.
	assert.EqualValues(t, []string{"aa", "bbbb"}, rows[0].Cells)
	assert.EqualValues(t, 2, rows[0].ByteOffset)
	assert.EqualValues(t, 8, rows[0].ByteCount)
	assert.EqualValues(t, []string{"cccc", "dddd"}, rows[1].Cells)
	assert.EqualValues(t, 10, rows[1].ByteOffset)
}

func TestRowScanner_IgnoredRows(t *testing.T) {
	src := createTestSource(t, "\n,,\nx,y\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 8}, Options{Delimiter: ','})
	assert.Len(t, rows, 3)
	assert.True(t, rows[0].IsIgnored())
	assert.EqualValues(t, 1, rows[0].ByteCount)
	assert.True(t, rows[1].IsIgnored())
	assert.EqualValues(t, []string{"", "", ""}, rows[1].Cells)
	assert.False(t, rows[2].IsIgnored())
}

func TestRowScanner_CustomDelimiter(t *testing.T) {
	src := createTestSource(t, "a|b\nc|d\n")

	rows := scanAll(t, src, Window{Offset: 0, Length: 8}, Options{Delimiter: '|'})
	assert.Len(t, rows, 2)
	assert.EqualValues(t, []string{"a", "b"}, rows[0].Cells)
}

func TestRowScanner_ContextCancellation(t *testing.T) {
	src := createTestSource(t, "a,b\nc,d\n")

	ctx, cancel := context.WithCancel(context.Background())
	sc, err := NewRowScanner(ctx, src, Window{Offset: 0, Length: 8}, Options{Delimiter: ','})
	assert.NoError(t, err)
	defer sc.Close()

	cancel()
	assert.False(t, sc.Scan())
	assert.ErrorIs(t, sc.Err(), context.Canceled)
}

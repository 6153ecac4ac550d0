package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeHeader_DetectsComma(t *testing.T) {
	src := createTestSource(t, "id,name\n0,x\n")

	header, dialect, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"id", "name"}, header.Cells)
	assert.EqualValues(t, 0, header.ByteOffset)
	assert.EqualValues(t, 8, header.ByteCount)
	assert.EqualValues(t, ',', dialect.Delimiter)
	assert.EqualValues(t, "\n", dialect.Newline)
}

func TestProbeHeader_DetectsTab(t *testing.T) {
	src := createTestSource(t, "id\tname\n0\tx\n")

	header, dialect, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"id", "name"}, header.Cells)
	assert.EqualValues(t, '\t', dialect.Delimiter)
}

func TestProbeHeader_DetectsCRLF(t *testing.T) {
	src := createTestSource(t, "id,name\r\n0,x\r\n")

	header, dialect, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"id", "name"}, header.Cells)
	assert.EqualValues(t, 9, header.ByteCount)
	assert.EqualValues(t, "\r\n", dialect.Newline)
}

func TestProbeHeader_QuotedDelimitersNotCounted(t *testing.T) {
	src := createTestSource(t, "\"a,b\";c\nx;y\n")

	header, dialect, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, ';', dialect.Delimiter)
	assert.EqualValues(t, []string{"a,b", "c"}, header.Cells)
}

func TestProbeHeader_HeaderOnlyFile(t *testing.T) {
	src := createTestSource(t, "id,name")

	header, _, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"id", "name"}, header.Cells)
	assert.EqualValues(t, 7, header.ByteCount)
}

func TestProbeHeader_GrowsPastChunkSize(t *testing.T) {
	src := createTestSource(t, "first,second,third\n0,1,2\n")

	header, _, err := ProbeHeader(context.Background(), src, 4, Dialect{})
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"first", "second", "third"}, header.Cells)
	assert.EqualValues(t, 19, header.ByteCount)
}

func TestProbeHeader_OverrideWins(t *testing.T) {
	src := createTestSource(t, "a;b,c\nx\n")

	header, dialect, err := ProbeHeader(context.Background(), src, 64, Dialect{Delimiter: ';'})
	assert.NoError(t, err)
	assert.EqualValues(t, ';', dialect.Delimiter)
	assert.EqualValues(t, []string{"a", "b,c"}, header.Cells)
}

func TestProbeHeader_EmptyFile(t *testing.T) {
	src := createTestSource(t, "")

	_, _, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestProbeHeader_BlankFirstLine(t *testing.T) {
	src := createTestSource(t, ",,\nx,y,z\n")

	_, _, err := ProbeHeader(context.Background(), src, 64, Dialect{})
	assert.ErrorIs(t, err, ErrNoHeader)
}

package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/YLivay/csview/reader"
)

// memSource serves byte ranges from an in-memory file and counts the
// traffic, so tests can assert how much of the file an operation touched.
type memSource struct {
	data      []byte
	reads     int
	readBytes int64
}

func (s *memSource) Length(ctx context.Context) (int64, error) {
	return int64(len(s.data)), nil
}

func (s *memSource) ReadRange(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 || length < 0 || offset > int64(len(s.data)) {
		return nil, fmt.Errorf("invalid byte range [%d, %d)", offset, offset+length)
	}
	end := min(offset+length, int64(len(s.data)))
	s.reads++
	s.readBytes += end - offset
	return io.NopCloser(bytes.NewReader(s.data[offset:end])), nil
}

// bigCSV builds an "id,name" file whose data rows are exactly 11 bytes
// each, so byte offsets in tests are easy to reason about.
func bigCSV(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("id,name\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%04d,n%04d\n", i, i)
	}
	return []byte(sb.String())
}

// newTestCache builds a cache over a synthetic file with a 4 byte header
// ("a,b\n") and the given total length.
func newTestCache(t *testing.T, byteLength int64) *cache {
	t.Helper()
	header := reader.Row{Cells: []string{"a", "b"}, ByteOffset: 0, ByteCount: 4}
	c, err := newCacheFromHeader(header, reader.Dialect{Delimiter: ',', Newline: "\n"}, byteLength)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c
}

// mustStore stores a data row span and fails the test on error.
func mustStore(t *testing.T, c *cache, byteOffset, byteCount int64, cells []string, hint int64) storeResult {
	t.Helper()
	res, err := c.store(byteOffset, byteCount, cells, hint)
	if err != nil {
		t.Fatalf("Failed to store span [%d, %d): %v", byteOffset, byteOffset+byteCount, err)
	}
	return res
}

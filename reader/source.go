package reader

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Row is a single parsed row: its cell values and the exact byte span it
// occupied in the file, delimiters and line terminator included.
type Row struct {
	Cells      []string
	ByteOffset int64
	ByteCount  int64
}

// IsIgnored reports whether the row carries no data, i.e. every cell is
// empty. Ignored rows still advance coverage but are never stored or
// counted by the cache.
func (r Row) IsIgnored() bool {
	for _, c := range r.Cells {
		if c != "" {
			return false
		}
	}
	return true
}

// Window is a half-open byte range [Offset, Offset+Length) of the file.
type Window struct {
	Offset int64
	Length int64
}

func (w Window) End() int64 { return w.Offset + w.Length }

// Source provides random byte-range access to a remote or local file.
type Source interface {
	// Length returns the total size of the file in bytes.
	Length(ctx context.Context) (int64, error)

	// ReadRange returns a reader over the given byte window. The reader
	// yields at most length bytes, fewer if the window extends past the
	// end of the file.
	ReadRange(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// FileSource serves byte ranges from a local file.
type FileSource struct {
	f *os.File
}

func NewFileSource(f *os.File) *FileSource {
	return &FileSource{f: f}
}

func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &FileSource{f: f}, nil
}

func (s *FileSource) Length(ctx context.Context) (int64, error) {
	st, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (s *FileSource) ReadRange(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid byte range [%d, %d)", offset, offset+length)
	}
	return io.NopCloser(io.NewSectionReader(s.f, offset, length)), nil
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

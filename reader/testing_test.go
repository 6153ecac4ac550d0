package reader

import (
	"context"
	"os"
	"path"
	"testing"
)

// createTestSource writes contents to a temporary file and opens it as a
// byte range source.
func createTestSource(t *testing.T, contents string) *FileSource {
	filepath := path.Join(t.TempDir(), "test.csv")
	if err := os.WriteFile(filepath, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	src, err := OpenFileSource(filepath)
	if err != nil {
		t.Fatalf("Failed to open temp file: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

// scanAll collects every row a scanner yields over the given window.
func scanAll(t *testing.T, src Source, window Window, opts Options) []Row {
	sc, err := NewRowScanner(context.Background(), src, window, opts)
	if err != nil {
		t.Fatalf("Failed to create row scanner: %v", err)
	}
	defer sc.Close()

	var rows []Row
	for sc.Scan() {
		rows = append(rows, sc.Row())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Scanner failed: %v", err)
	}
	return rows
}

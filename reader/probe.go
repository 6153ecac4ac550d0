package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNoHeader is returned when the file is empty or its first line holds
// nothing usable as column names.
var ErrNoHeader = errors.New("no header row found")

// Dialect is what the header probe learns about the file's framing.
type Dialect struct {
	Delimiter byte
	Newline   string
}

// delimiterCandidates, most common first. Ties go to the earlier one.
var delimiterCandidates = []byte{',', '\t', ';', '|'}

// ProbeHeader reads chunks from the start of the file until it finds the
// first line terminator, detects the delimiter and newline flavor, and
// returns the parsed header row. Zero fields of the override are filled by
// detection; non-zero fields win.
//
// A file without any terminator is treated as consisting solely of a
// header. An empty file, or a first line with only empty cells, yields
// ErrNoHeader.
func ProbeHeader(ctx context.Context, src Source, chunkSize int, override Dialect) (Row, Dialect, error) {
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	length, err := src.Length(ctx)
	if err != nil {
		return Row{}, Dialect{}, err
	}
	if length == 0 {
		return Row{}, Dialect{}, fmt.Errorf("%w: file is empty", ErrNoHeader)
	}

	// Grow the probe window until it contains a newline or the whole file.
	var raw []byte
	probeLen := int64(chunkSize)
	for {
		if probeLen > length {
			probeLen = length
		}
		raw, err = readFull(ctx, src, 0, probeLen)
		if err != nil {
			return Row{}, Dialect{}, err
		}
		if bytes.IndexByte(raw, '\n') >= 0 || probeLen == length {
			break
		}
		probeLen *= 2
	}

	line := raw
	headerByteCount := length
	dialect := override
	if nl := bytes.IndexByte(raw, '\n'); nl >= 0 {
		line = raw[:nl]
		headerByteCount = int64(nl) + 1
		if dialect.Newline == "" {
			if nl > 0 && raw[nl-1] == '\r' {
				dialect.Newline = "\r\n"
			} else {
				dialect.Newline = "\n"
			}
		}
	}
	line = bytes.TrimSuffix(line, []byte("\r"))
	if dialect.Newline == "" {
		dialect.Newline = "\n"
	}
	if dialect.Delimiter == 0 {
		dialect.Delimiter = detectDelimiter(line)
	}

	header := Row{
		Cells:      splitCells(line, dialect.Delimiter),
		ByteOffset: 0,
		ByteCount:  headerByteCount,
	}
	if header.IsIgnored() {
		return Row{}, Dialect{}, fmt.Errorf("%w: first line has no column names", ErrNoHeader)
	}

	return header, dialect, nil
}

// detectDelimiter picks the candidate that appears most often outside
// quotes in the header line. A line without any candidate defaults to ','.
func detectDelimiter(line []byte) byte {
	best, bestCount := byte(','), 0
	for _, cand := range delimiterCandidates {
		count := 0
		inQuotes := false
		for _, b := range line {
			switch {
			case b == '"':
				inQuotes = !inQuotes
			case b == cand && !inQuotes:
				count++
			}
		}
		if count > bestCount {
			best, bestCount = cand, count
		}
	}
	return best
}

func readFull(ctx context.Context, src Source, offset, length int64) ([]byte, error) {
	body, err := src.ReadRange(ctx, offset, length)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

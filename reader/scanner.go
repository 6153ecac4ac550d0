package reader

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Options configure how raw bytes are tokenized into rows.
type Options struct {
	// Delimiter separates cells, e.g. ',' or '\t'.
	Delimiter byte
	// Newline is the line terminator flavor, "\n" or "\r\n". The scanner
	// accepts both regardless; this records what the header probe saw.
	Newline string
	// ChunkSize is the transport read granularity in bytes.
	ChunkSize int
}

// RowScanner lazily tokenizes a byte window of a delimited-text file into
// rows, tracking the exact byte span of each row. Quotes are handled the
// RFC 4180 way: a cell starting with '"' runs until the closing quote,
// doubled quotes escape, and delimiters and newlines inside quotes are
// literal.
//
// A window may begin mid-row or even mid-quoted-field; the first row is
// then garbage and the caller is expected to discard it. A row cut off by
// the end of the window is never yielded unless the window reaches the end
// of the file, in which case a missing final terminator is tolerated.
//
// The usage pattern follows bufio.Scanner: Scan, Row, Err.
type RowScanner struct {
	ctx  context.Context
	body io.ReadCloser
	br   *bufio.Reader

	delimiter byte

	// Absolute offset of the next unread byte, and the absolute window and
	// file ends.
	offset     int64
	end        int64
	fileLength int64

	row  Row
	err  error
	done bool
}

// NewRowScanner opens the given byte window of src for row-by-row parsing.
func NewRowScanner(ctx context.Context, src Source, window Window, opts Options) (*RowScanner, error) {
	fileLength, err := src.Length(ctx)
	if err != nil {
		return nil, err
	}

	body, err := src.ReadRange(ctx, window.Offset, window.Length)
	if err != nil {
		return nil, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}

	return &RowScanner{
		ctx:        ctx,
		body:       body,
		br:         bufio.NewReaderSize(body, chunkSize),
		delimiter:  delimiter,
		offset:     window.Offset,
		end:        window.End(),
		fileLength: fileLength,
	}, nil
}

// Scan advances to the next row. It returns false at the end of the window
// or on error; Err tells the two apart.
func (s *RowScanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	var (
		start      = s.offset
		cells      []string
		cell       strings.Builder
		inQuotes   bool
		quoted     bool
		sawAny     bool
		terminated bool
	)

scan:
	for s.offset < s.end {
		b, err := s.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			s.err = err
			return false
		}
		s.offset++
		sawAny = true

		switch {
		case inQuotes:
			if b != '"' {
				cell.WriteByte(b)
				break
			}
			// A doubled quote is an escaped literal quote.
			if nb, perr := s.br.Peek(1); perr == nil && nb[0] == '"' && s.offset < s.end {
				s.br.ReadByte()
				s.offset++
				cell.WriteByte('"')
			} else {
				inQuotes = false
			}
		case b == '"' && cell.Len() == 0 && !quoted:
			inQuotes = true
			quoted = true
		case b == s.delimiter:
			cells = append(cells, cell.String())
			cell.Reset()
			quoted = false
		case b == '\n':
			terminated = true
			break scan
		default:
			if b == '\r' {
				// A \r immediately followed by \n is part of the
				// terminator, not of the cell.
				if nb, perr := s.br.Peek(1); perr == nil && nb[0] == '\n' {
					break
				}
			}
			cell.WriteByte(b)
		}
	}

	if !sawAny {
		s.done = true
		return false
	}

	if !terminated {
		s.done = true
		if s.end < s.fileLength {
			// The window cut this row off; its tail is out of reach.
			return false
		}
	}

	cells = append(cells, cell.String())

	s.row = Row{Cells: cells, ByteOffset: start, ByteCount: s.offset - start}
	return true
}

// Row returns the row found by the last successful Scan.
func (s *RowScanner) Row() Row {
	return s.row
}

// Err returns the first error encountered, if any. Reaching the end of the
// window is not an error.
func (s *RowScanner) Err() error {
	return s.err
}

func (s *RowScanner) Close() error {
	return s.body.Close()
}

// splitCells tokenizes a single line (no terminator) into cells with the
// same quote handling as the scanner.
func splitCells(line []byte, delimiter byte) []string {
	var (
		cells    []string
		cell     strings.Builder
		inQuotes bool
		quoted   bool
	)
	for i := 0; i < len(line); i++ {
		b := line[i]
		switch {
		case inQuotes:
			if b != '"' {
				cell.WriteByte(b)
			} else if i+1 < len(line) && line[i+1] == '"' {
				cell.WriteByte('"')
				i++
			} else {
				inQuotes = false
			}
		case b == '"' && cell.Len() == 0 && !quoted:
			inQuotes = true
			quoted = true
		case b == delimiter:
			cells = append(cells, cell.String())
			cell.Reset()
			quoted = false
		default:
			cell.WriteByte(b)
		}
	}
	return append(cells, cell.String())
}

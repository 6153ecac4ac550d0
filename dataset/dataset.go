package dataset

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/YLivay/csview/reader"
)

const (
	// DefaultChunkSize is the default fetch granularity in bytes.
	DefaultChunkSize = 64 * 1024
	// DefaultInitialRowCount is how many data rows New parses up front to
	// seed the bytes-per-row average.
	DefaultInitialRowCount = 20

	// maxFetchPasses bounds re-targeting within one Fetch call so a
	// systematically wrong average cannot loop forever.
	maxFetchPasses = 32

	// fetchPadRows widens an estimated byte window by a few rows so the
	// requested boundary rows resolve despite estimate error.
	fetchPadRows = 2
)

// Options configure how a Dataset probes and fetches.
type Options struct {
	// ChunkSize is the fetch granularity in bytes. Zero means
	// DefaultChunkSize; negative is invalid.
	ChunkSize int64

	// InitialRowCount is how many data rows to parse during New. Zero
	// probes only the header; negative is invalid. DefaultOptions sets
	// DefaultInitialRowCount.
	InitialRowCount int64

	// Delimiter and Newline override the header probe's auto-detection
	// when non-zero.
	Delimiter byte
	Newline   string
}

// DefaultOptions returns the options New would be unhappy without.
func DefaultOptions() Options {
	return Options{
		ChunkSize:       DefaultChunkSize,
		InitialRowCount: DefaultInitialRowCount,
	}
}

// ColumnDescriptor describes one column of the file, in file order.
type ColumnDescriptor struct {
	Name string
}

// CellQuery addresses a single cell. OrderBy must be empty: sorting is not
// supported.
type CellQuery struct {
	Row     int64
	Column  string
	OrderBy string
}

// CellResult is the value of a present cell.
type CellResult struct {
	Value string
}

// RowQuery addresses a single row.
type RowQuery struct {
	Row     int64
	OrderBy string
}

// RowNumberResult is a resolved row number, possibly a best-effort
// estimate for rows that are not stored yet.
type RowNumberResult struct {
	Value      int64
	IsEstimate bool
}

// FetchRequest asks for rows [RowStart, RowEnd) to become stored. Columns
// is informational only: partial-column fetching is not supported, rows
// are always fetched whole. OrderBy must be empty.
type FetchRequest struct {
	RowStart int64
	RowEnd   int64
	Columns  []string
	OrderBy  string
}

// Dataset is the viewer-facing handle on a large delimited-text file. It
// answers cell and row-count queries from whatever byte spans have been
// parsed so far, and refines both as more of the file is fetched.
//
// A Dataset is single-threaded and cooperatively scheduled: at most one
// Fetch may be in flight at a time, and callers must await it before
// issuing the next. Query methods may be called freely between fetches.
type Dataset struct {
	src     reader.Source
	dialect reader.Dialect
	opts    Options

	cache *cache
	est   *estimator

	fetching bool

	resolveFns  []func(row int64)
	rowCountFns []func(numRows int64, estimated bool)
}

// New probes the header (auto-detecting the dialect unless overridden) and
// the first InitialRowCount data rows of the file behind src.
func New(ctx context.Context, src reader.Source, opts Options) (*Dataset, error) {
	if opts.ChunkSize < 0 || opts.InitialRowCount < 0 {
		return nil, fmt.Errorf("%w: chunk size %d, initial row count %d", ErrInvalidArgument, opts.ChunkSize, opts.InitialRowCount)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	length, err := src.Length(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to determine file length: %w", err)
	}

	header, dialect, err := reader.ProbeHeader(ctx, src, int(opts.ChunkSize), reader.Dialect{
		Delimiter: opts.Delimiter,
		Newline:   opts.Newline,
	})
	if err != nil {
		return nil, err
	}

	c, err := newCacheFromHeader(header, dialect, length)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		src:     src,
		dialect: dialect,
		opts:    opts,
		cache:   c,
		est:     &estimator{cache: c},
	}

	if err := d.probeInitialRows(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// probeInitialRows parses rows sequentially from the end of the header
// until InitialRowCount data rows are stored or the file ends, seeding the
// bytes-per-row average.
func (d *Dataset) probeInitialRows(ctx context.Context) error {
	want := d.opts.InitialRowCount
	stored := int64(0)
	winLen := d.opts.ChunkSize

	for pass := 0; pass < maxFetchPasses && stored < want; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := d.cache.serial.nextByte()
		if start >= d.cache.byteLength {
			break
		}

		window := reader.Window{Offset: start, Length: min(winLen, d.cache.byteLength-start)}
		outcome, err := d.scanAndStore(ctx, window, scanParams{maxRows: want - stored})
		if err != nil {
			return err
		}
		stored += outcome.newRows

		if outcome.scanned == 0 {
			// A row longer than the window; retry wider.
			winLen *= 2
		}
	}

	if stored == 0 && want > 0 && !d.cache.complete() {
		return fmt.Errorf("%w: could not parse any data row in the first %d bytes", ErrNoData, winLen)
	}

	d.est.refresh()
	return nil
}

// NumRows is the externally visible row count: exact once the whole file
// is covered, an estimate before that.
func (d *Dataset) NumRows() int64 {
	return d.est.numRows()
}

// IsNumRowsEstimated reports whether NumRows is still an estimate.
func (d *Dataset) IsNumRowsEstimated() bool {
	return d.est.isEstimated()
}

// ColumnDescriptors lists the columns in file order.
func (d *Dataset) ColumnDescriptors() []ColumnDescriptor {
	descs := make([]ColumnDescriptor, len(d.cache.columnNames))
	for i, name := range d.cache.columnNames {
		descs[i] = ColumnDescriptor{Name: name}
	}
	return descs
}

// OnResolve registers a callback invoked once per newly stored data row
// that falls inside a Fetch's requested window. Callbacks run
// synchronously during Fetch.
func (d *Dataset) OnResolve(fn func(row int64)) {
	d.resolveFns = append(d.resolveFns, fn)
}

// OnRowCountChanged registers a callback invoked whenever a refresh
// actually changes the visible row count.
func (d *Dataset) OnRowCountChanged(fn func(numRows int64, estimated bool)) {
	d.rowCountFns = append(d.rowCountFns, fn)
}

// GetCell returns the value at (row, column) if that position is stored.
// Absence is not an error; it means the row has not been fetched yet.
func (d *Dataset) GetCell(q CellQuery) (CellResult, bool, error) {
	if q.OrderBy != "" {
		return CellResult{}, false, fmt.Errorf("%w: order by %q", ErrOrderByUnsupported, q.OrderBy)
	}
	if q.Row < 0 {
		return CellResult{}, false, fmt.Errorf("%w: row %d", ErrInvalidArgument, q.Row)
	}
	if q.Row >= d.est.maxNumRows() {
		return CellResult{}, false, fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, q.Row, d.est.numRows())
	}

	col := slices.Index(d.cache.columnNames, q.Column)
	if col < 0 {
		return CellResult{}, false, fmt.Errorf("%w: unknown column %q", ErrColumnOutOfRange, q.Column)
	}

	value, ok, err := d.est.getCell(q.Row, int64(col))
	if err != nil {
		return CellResult{}, false, err
	}
	return CellResult{Value: value}, ok, nil
}

// GetRowNumber resolves a row index. Unlike cell queries it may guess: any
// row within the current count resolves, flagged as an estimate unless
// exactly stored.
func (d *Dataset) GetRowNumber(q RowQuery) (RowNumberResult, bool, error) {
	if q.OrderBy != "" {
		return RowNumberResult{}, false, fmt.Errorf("%w: order by %q", ErrOrderByUnsupported, q.OrderBy)
	}
	if q.Row < 0 {
		return RowNumberResult{}, false, fmt.Errorf("%w: row %d", ErrInvalidArgument, q.Row)
	}
	if q.Row >= d.est.maxNumRows() {
		return RowNumberResult{}, false, fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, q.Row, d.est.numRows())
	}

	num, ok := d.est.getRowNumber(q.Row)
	if !ok {
		return RowNumberResult{}, false, nil
	}
	return RowNumberResult{Value: num.value, IsEstimate: num.isEstimate}, true, nil
}

// Fetch makes the rows [RowStart, RowEnd) stored, guessing byte windows
// from the estimator and refining the guesses between passes. It returns
// once the window is covered, the file is complete, no further progress
// can be made, or ctx is cancelled. Rows are committed only once fully
// parsed, so cancellation never leaves a partial row stored.
func (d *Dataset) Fetch(ctx context.Context, req FetchRequest) error {
	if req.OrderBy != "" {
		return fmt.Errorf("%w: order by %q", ErrOrderByUnsupported, req.OrderBy)
	}
	if req.RowStart < 0 || req.RowEnd < req.RowStart {
		return fmt.Errorf("%w: row window [%d, %d)", ErrInvalidArgument, req.RowStart, req.RowEnd)
	}
	if d.fetching {
		return ErrFetchInProgress
	}
	d.fetching = true
	defer func() { d.fetching = false }()

	// One refresh per batch, not per row.
	d.refreshAndNotify()

	if d.cache.complete() || req.RowEnd == req.RowStart {
		return nil
	}

	widen := int64(1)
	for pass := 0; pass < maxFetchPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Clip to what is actually missing.
		start, missing, ok := d.est.guessFirstMissingRow(req.RowStart)
		if !ok || start >= req.RowEnd {
			return nil
		}
		end, ok := d.est.guessLastMissingRow(req.RowEnd - 1)
		if !ok || end < start {
			return nil
		}

		outcome, err := d.fetchPass(ctx, req, start, end, missing, widen)
		d.refreshAndNotify()
		if err != nil {
			return err
		}
		if d.cache.complete() {
			return nil
		}
		if outcome.newSpans == 0 {
			if outcome.scanned > 0 {
				// Everything in the window was already covered; the
				// estimates are as good as they will get.
				return nil
			}
			// A row longer than the window; retry wider.
			widen *= 2
			continue
		}
		widen = 1
	}
	return nil
}

// fetchPass runs one byte-window fetch aimed at rows [start, end] and
// reports what was stored. widen multiplies the window for retries after
// a pass that could not fit a single row.
func (d *Dataset) fetchPass(ctx context.Context, req FetchRequest, start, end int64, missing statusMissing, widen int64) (scanOutcome, error) {
	byteStart := missing.byteOffset.value
	discardFirst := false
	if missing.byteOffset.isEstimate {
		// An estimated start can land mid-row: align down to a chunk
		// boundary and drop the first parsed row, which is likely partial.
		byteStart -= byteStart % d.opts.ChunkSize
		discardFirst = true
	}

	// A byte window wide enough for the wanted rows plus padding.
	rowsWanted := end - start + 1 + fetchPadRows
	var byteEnd int64
	if d.est.avg > 0 {
		byteEnd = byteStart + int64(math.Ceil(float64(rowsWanted)*d.est.avg))
	} else {
		byteEnd = byteStart + d.opts.ChunkSize
	}
	byteEnd = byteStart + (byteEnd-byteStart)*widen
	if rem := byteEnd % d.opts.ChunkSize; rem != 0 {
		byteEnd += d.opts.ChunkSize - rem
	}
	if missing.right != nil && byteEnd > missing.right.firstByte {
		byteEnd = missing.right.firstByte
	}
	if byteEnd > d.cache.byteLength {
		byteEnd = d.cache.byteLength
	}
	if byteEnd <= byteStart {
		return scanOutcome{}, nil
	}

	window := reader.Window{Offset: byteStart, Length: byteEnd - byteStart}
	return d.scanAndStore(ctx, window, scanParams{
		discardFirst: discardFirst,
		firstRowHint: start,
		req:          &req,
	})
}

// scanParams tune one scanAndStore run.
type scanParams struct {
	// discardFirst drops the first yielded row, used when the window
	// starts at an estimated offset that may sit mid-row.
	discardFirst bool
	// firstRowHint seeds the estimated index of a freshly opened random
	// range.
	firstRowHint int64
	// maxRows stops after that many newly stored data rows; 0 means no
	// limit.
	maxRows int64
	// req, when set, enables resolve notifications for new rows inside
	// its window and early stopping once the next missing gap is farther
	// than one chunk ahead, so a fresh, better-targeted pass can take
	// over.
	req *FetchRequest
}

// scanOutcome reports what one scanAndStore run did.
type scanOutcome struct {
	// scanned counts every row considered for storing, duplicates
	// included but a discarded first row not.
	scanned int64
	// newSpans counts newly stored spans, ignored rows included.
	newSpans int64
	// newRows counts newly stored data rows only.
	newRows int64
}

// scanAndStore drives the row source over one byte window and stores
// every yielded row. A row is committed only once fully parsed, and
// cancellation is checked at every row boundary.
func (d *Dataset) scanAndStore(ctx context.Context, window reader.Window, params scanParams) (scanOutcome, error) {
	var out scanOutcome

	sc, err := reader.NewRowScanner(ctx, d.src, window, reader.Options{
		Delimiter: d.dialect.Delimiter,
		Newline:   d.dialect.Newline,
		ChunkSize: int(d.opts.ChunkSize),
	})
	if err != nil {
		return out, err
	}
	defer sc.Close()

	first := true
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		row := sc.Row()

		if first {
			first = false
			if params.discardFirst {
				continue
			}
		}
		out.scanned++

		cells := row.Cells
		if row.IsIgnored() {
			cells = nil
		}
		res, err := d.cache.store(row.ByteOffset, row.ByteCount, cells, params.firstRowHint)
		if err != nil {
			return out, err
		}
		if !res.newly {
			continue
		}
		out.newSpans++
		if !res.ignored {
			out.newRows++
			if params.req != nil && res.row >= params.req.RowStart && res.row < params.req.RowEnd {
				d.notifyResolve(res.row)
			}
		}

		if params.maxRows > 0 && out.newRows >= params.maxRows {
			return out, nil
		}
		if params.req != nil && d.shouldRetarget(params.req, row.ByteOffset+row.ByteCount) {
			return out, nil
		}
	}
	return out, sc.Err()
}

// shouldRetarget reports whether the next missing gap of the request is
// now more than one chunk beyond pos, in which case the current pass is
// wasting bytes and a fresh one should aim straight at the gap.
func (d *Dataset) shouldRetarget(req *FetchRequest, pos int64) bool {
	row, missing, ok := d.est.guessFirstMissingRow(req.RowStart)
	if !ok || row >= req.RowEnd {
		// Nothing missing in the window anymore.
		return true
	}
	return missing.byteOffset.value > pos+d.opts.ChunkSize
}

func (d *Dataset) refreshAndNotify() {
	if d.est.refresh() {
		n, estimated := d.est.numRows(), d.est.isEstimated()
		for _, fn := range d.rowCountFns {
			fn(n, estimated)
		}
	}
}

func (d *Dataset) notifyResolve(row int64) {
	for _, fn := range d.resolveFns {
		fn(row)
	}
}

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"

	"github.com/YLivay/csview/dataset"
	"github.com/YLivay/csview/log"
	"github.com/YLivay/csview/utils"
)

const (
	minColWidth = 4
	maxColWidth = 32
	gutterWidth = 9
)

type Application struct {
	title  string
	ds     *dataset.Dataset
	filter *rowFilter

	// The width of the terminal
	width int
	// The height of the terminal
	height int

	// First data row and leftmost column currently on screen.
	topRow  int64
	leftCol int

	screen tcell.Screen
}

func NewApplication(title string, ds *dataset.Dataset, filter *rowFilter) *Application {
	return &Application{title: title, ds: ds, filter: filter}
}

func (a *Application) Run(ctx context.Context, cancelCtx context.CancelFunc) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	a.screen = screen

	quit := func() {
		// You have to catch panics in a defer, clean up, and
		// re-raise them - otherwise your application can
		// die without leaving any diagnostic trace.
		maybePanic := recover()
		screen.Fini()
		if maybePanic != nil {
			panic(maybePanic)
		}
	}
	defer quit()

	// While the screen owns the terminal bare LFs in log output would
	// stairstep.
	oldRawMode := log.Default().RawMode()
	log.Default().SetRawMode(true)
	defer log.Default().SetRawMode(oldRawMode)

	a.width, a.height = screen.Size()

	redraw := make(chan struct{}, 1)
	markDirty := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	a.ds.OnResolve(func(int64) { markDirty() })
	a.ds.OnRowCountChanged(func(int64, bool) { markDirty() })

	events := make(chan tcell.Event)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	a.fetchVisible(ctx)
	a.draw()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-redraw:
			a.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				a.width, a.height = screen.Size()
				screen.Sync()
			case *tcell.EventKey:
				if a.handleKey(ev) {
					cancelCtx()
					return nil
				}
			}
			a.fetchVisible(ctx)
			a.draw()
		}
	}
}

// handleKey reacts to a key press and reports whether to quit.
func (a *Application) handleKey(ev *tcell.EventKey) bool {
	page := int64(a.visibleRows())
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
		return true
	case ev.Key() == tcell.KeyUp || ev.Rune() == 'k':
		a.scrollTo(a.topRow - 1)
	case ev.Key() == tcell.KeyDown || ev.Rune() == 'j':
		a.scrollTo(a.topRow + 1)
	case ev.Key() == tcell.KeyPgUp:
		a.scrollTo(a.topRow - page)
	case ev.Key() == tcell.KeyPgDn || ev.Rune() == ' ':
		a.scrollTo(a.topRow + page)
	case ev.Key() == tcell.KeyHome || ev.Rune() == 'g':
		a.scrollTo(0)
	case ev.Key() == tcell.KeyEnd || ev.Rune() == 'G':
		a.scrollTo(a.ds.NumRows() - page)
	case ev.Key() == tcell.KeyLeft || ev.Rune() == 'h':
		if a.leftCol > 0 {
			a.leftCol--
		}
	case ev.Key() == tcell.KeyRight || ev.Rune() == 'l':
		if a.leftCol < len(a.ds.ColumnDescriptors())-1 {
			a.leftCol++
		}
	}
	return false
}

func (a *Application) scrollTo(row int64) {
	maxTop := a.ds.NumRows() - int64(a.visibleRows())
	if row > maxTop {
		row = maxTop
	}
	if row < 0 {
		row = 0
	}
	a.topRow = row
}

// visibleRows is how many data rows fit between the header line and the
// status line.
func (a *Application) visibleRows() int {
	if a.height <= 2 {
		return 0
	}
	return a.height - 2
}

// fetchVisible asks the dataset to resolve the rows currently on screen.
// Fetches are serialized by virtue of running on the event loop.
func (a *Application) fetchVisible(ctx context.Context) {
	end := a.topRow + int64(a.visibleRows())
	err := a.ds.Fetch(ctx, dataset.FetchRequest{RowStart: a.topRow, RowEnd: end})
	if err != nil && ctx.Err() == nil {
		log.Println("Fetch failed:", err)
	}
}

type screenRow struct {
	number string
	cells  []string
	match  bool
}

func (a *Application) draw() {
	s := a.screen
	s.Clear()

	descs := a.ds.ColumnDescriptors()
	rows := a.collectVisible(descs)
	widths := a.columnWidths(descs, rows)

	headerStyle := tcell.StyleDefault.Bold(true).Underline(true)
	gutterStyle := tcell.StyleDefault.Dim(true)
	matchStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	// Header line, with the row number gutter left blank.
	x := gutterWidth
	for c := a.leftCol; c < len(descs) && x < a.width; c++ {
		x = a.drawText(x, 0, headerStyle, utils.FitCell(descs[c].Name, widths[c]))
		x = a.drawText(x, 0, tcell.StyleDefault, "  ")
	}

	for i, row := range rows {
		y := i + 1
		style := tcell.StyleDefault
		if row.match {
			style = matchStyle
		}
		a.drawText(0, y, gutterStyle, utils.PadLeft(row.number, gutterWidth-1)+" ")
		x = gutterWidth
		for c := a.leftCol; c < len(descs) && x < a.width; c++ {
			x = a.drawText(x, y, style, utils.FitCell(row.cells[c], widths[c]))
			x = a.drawText(x, y, tcell.StyleDefault, "  ")
		}
	}

	a.drawText(0, a.height-1, tcell.StyleDefault.Reverse(true), utils.FitCell(a.statusLine(), a.width))

	s.Show()
}

// collectVisible gathers the cells of the rows on screen so that column
// widths can fit the actual content.
func (a *Application) collectVisible(descs []dataset.ColumnDescriptor) []screenRow {
	visible := a.visibleRows()
	rows := make([]screenRow, 0, visible)
	for i := 0; i < visible; i++ {
		rowIdx := a.topRow + int64(i)
		if rowIdx >= a.ds.NumRows() {
			break
		}

		sr := screenRow{number: a.rowNumberLabel(rowIdx), cells: make([]string, len(descs))}
		byName := make(map[string]any, len(descs))
		for c, desc := range descs {
			res, ok, err := a.ds.GetCell(dataset.CellQuery{Row: rowIdx, Column: desc.Name})
			if err != nil || !ok {
				continue
			}
			sr.cells[c] = res.Value
			byName[desc.Name] = res.Value
		}
		sr.match = a.filter != nil && a.filter.Match(byName)
		rows = append(rows, sr)
	}
	return rows
}

func (a *Application) columnWidths(descs []dataset.ColumnDescriptor, rows []screenRow) []int {
	widths := make([]int, len(descs))
	for c, desc := range descs {
		widths[c] = utils.DisplayWidth(desc.Name)
	}
	for _, row := range rows {
		for c, cell := range row.cells {
			if w := utils.DisplayWidth(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}
	for c := range widths {
		widths[c] = max(minColWidth, min(widths[c], maxColWidth))
	}
	return widths
}

// drawText renders a string at (x, y) and returns the x just past it.
// Grapheme cluster aware so wide runes keep the grid aligned.
func (a *Application) drawText(x, y int, style tcell.Style, text string) int {
	for _, cl := range utils.Clusters(text) {
		if x >= a.width {
			break
		}
		runes := []rune(cl.Str)
		a.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += cl.Width
	}
	return x
}

func (a *Application) rowNumberLabel(row int64) string {
	res, ok, err := a.ds.GetRowNumber(dataset.RowQuery{Row: row})
	if err != nil || !ok {
		return "?"
	}
	label := strconv.FormatInt(res.Value+1, 10)
	if res.IsEstimate {
		label = "~" + label
	}
	return label
}

func (a *Application) statusLine() string {
	total := a.ds.NumRows()
	count := strconv.FormatInt(total, 10)
	if a.ds.IsNumRowsEstimated() {
		count = "~" + count
	}
	bottom := min(a.topRow+int64(a.visibleRows()), total)
	return fmt.Sprintf(" %s | rows %d-%d of %s | q to quit", a.title, a.topRow+1, bottom, count)
}

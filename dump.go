package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/YLivay/csview/dataset"
	"github.com/YLivay/csview/utils"
)

// dumpTable prints the first maxRows rows as an aligned table. Used when
// stdout is not a terminal, so the viewer can sit in a pipeline. Unlike
// the interactive screen the filter drops non-matching rows here instead
// of highlighting them.
func dumpTable(ctx context.Context, w io.Writer, ds *dataset.Dataset, filter *rowFilter, maxRows int64) error {
	if maxRows < 0 {
		maxRows = 0
	}
	if maxRows > 0 {
		if err := ds.Fetch(ctx, dataset.FetchRequest{RowStart: 0, RowEnd: maxRows}); err != nil {
			return err
		}
	}

	descs := ds.ColumnDescriptors()
	total := ds.NumRows()
	n := min(maxRows, total)

	// Gather the window up front so columns can fit their content.
	rows := make([][]string, 0, n)
	for r := int64(0); r < n; r++ {
		cells := make([]string, len(descs))
		byName := make(map[string]any, len(descs))
		for c, desc := range descs {
			res, ok, err := ds.GetCell(dataset.CellQuery{Row: r, Column: desc.Name})
			if err != nil {
				return err
			}
			if ok {
				cells[c] = res.Value
				byName[desc.Name] = res.Value
			}
		}
		if filter != nil && !filter.Match(byName) {
			continue
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(descs))
	for c, desc := range descs {
		widths[c] = utils.DisplayWidth(desc.Name)
	}
	for _, cells := range rows {
		for c, cell := range cells {
			if w := utils.DisplayWidth(cell); w > widths[c] {
				widths[c] = w
			}
		}
	}

	writeRow := func(cells []string) error {
		var sb strings.Builder
		for c, cell := range cells {
			if c > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(utils.FitCell(cell, widths[c]))
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		return err
	}

	header := make([]string, len(descs))
	for c, desc := range descs {
		header[c] = desc.Name
	}
	if err := writeRow(header); err != nil {
		return err
	}
	for _, cells := range rows {
		if err := writeRow(cells); err != nil {
			return err
		}
	}

	count := strconv.FormatInt(total, 10)
	if ds.IsNumRowsEstimated() {
		count = "~" + count
	}
	_, err := fmt.Fprintf(w, "(%d of %s rows)\n", len(rows), count)
	return err
}

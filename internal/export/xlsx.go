// Package export writes table contents to spreadsheet files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/maruel/sheetgrid/internal/grid"
)

// DefaultPageSize is the window size used to page through a table.
const DefaultPageSize = grid.MaxWindowSize

// Windower serves windows of rows. *storage.WindowService implements it.
type Windower interface {
	QueryWindow(ctx context.Context, req *grid.WindowRequest) (*grid.WindowResponse, error)
}

// Options selects the rows to export.
type Options struct {
	Filters   []grid.Filter
	Sort      []grid.Sort
	SheetName string
	PageSize  int
}

// WriteXLSX writes the visible columns of a table and every row matching
// opts to w as an XLSX workbook. Rows are streamed one window at a time. It
// returns the number of data rows written.
func WriteXLSX(ctx context.Context, w io.Writer, src Windower, tableID string, cols []*grid.Column, opts Options) (int, error) {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > grid.MaxWindowSize {
		pageSize = DefaultPageSize
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if name := f.GetSheetName(0); name != sheet {
		if err := f.SetSheetName(name, sheet); err != nil {
			return 0, fmt.Errorf("failed to name sheet: %w", err)
		}
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to create stream writer: %w", err)
	}

	visible := make([]*grid.Column, 0, len(cols))
	header := make([]any, 0, len(cols))
	for _, c := range cols {
		if c.Hidden {
			continue
		}
		visible = append(visible, c)
		header = append(header, c.Name)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	written := 0
	for {
		resp, err := src.QueryWindow(ctx, &grid.WindowRequest{
			TableID:    tableID,
			StartIndex: written,
			WindowSize: pageSize,
			Filters:    opts.Filters,
			Sort:       opts.Sort,
		})
		if err != nil {
			return written, err
		}
		for _, r := range resp.Rows {
			cell, err := excelize.CoordinatesToCellName(1, written+2)
			if err != nil {
				return written, err
			}
			if err := sw.SetRow(cell, rowValues(visible, r)); err != nil {
				return written, fmt.Errorf("failed to write row %d: %w", written, err)
			}
			written++
		}
		if len(resp.Rows) == 0 || written >= resp.TotalCount {
			break
		}
	}

	if err := sw.Flush(); err != nil {
		return written, fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return written, fmt.Errorf("failed to write workbook: %w", err)
	}
	return written, nil
}

func rowValues(cols []*grid.Column, r *grid.Row) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		v, ok := r.Values[c.ID]
		if !ok || v == nil {
			continue
		}
		switch x := v.(type) {
		case string, float64, bool:
			out[i] = x
		default:
			b, err := json.Marshal(x)
			if err != nil {
				continue
			}
			out[i] = string(b)
		}
	}
	return out
}

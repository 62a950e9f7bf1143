package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/export"
	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/storage"
)

// ExportHandler streams table contents as XLSX.
type ExportHandler struct {
	svc *storage.Services
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *storage.Services) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// ExportQuery is the optional "q" query parameter: a JSON object with
// filters and sort, as in a window request.
type ExportQuery struct {
	Filters []grid.Filter `json:"filters,omitempty"`
	Sort    []grid.Sort   `json:"sort,omitempty"`
}

// ExportXLSX serves GET /api/tables/{tableID}/export.xlsx. Errors that occur
// before the first byte is written are returned for the caller to render.
func (h *ExportHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	tableID := r.PathValue("tableID")
	cols, err := h.svc.Columns.GetColumns(ctx, tableID)
	if err != nil {
		return err
	}
	var q ExportQuery
	if s := r.URL.Query().Get("q"); s != "" {
		if err := json.Unmarshal([]byte(s), &q); err != nil {
			return apierrors.BadRequest("invalid q parameter").Wrap(err)
		}
	}
	// Validate before streaming so errors still get a JSON body.
	if _, err := grid.Compile(tableID, cols, q.Filters, q.Sort); err != nil {
		return err
	}
	cw := &countingWriter{w: w}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+tableID+`.xlsx"`)
	n, err := export.WriteXLSX(ctx, cw, h.svc.Windows, tableID, cols, export.Options{Filters: q.Filters, Sort: q.Sort})
	if err != nil {
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			return err
		}
		// The body is partially sent; all that is left is to log.
		slog.ErrorContext(ctx, "export failed", "table", tableID, "rows", n, "err", err)
		return nil
	}
	slog.InfoContext(ctx, "export", "table", tableID, "rows", n, "bytes", cw.n)
	return nil
}

type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

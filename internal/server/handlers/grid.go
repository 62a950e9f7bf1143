package handlers

import (
	"context"

	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/server/dto"
	"github.com/maruel/sheetgrid/internal/storage"
)

// GridHandler handles table, column, row and cell requests.
type GridHandler struct {
	svc               *storage.Services
	defaultWindowSize int
}

// NewGridHandler creates a new grid handler.
func NewGridHandler(svc *storage.Services, defaultWindowSize int) *GridHandler {
	if defaultWindowSize <= 0 || defaultWindowSize > grid.MaxWindowSize {
		defaultWindowSize = grid.DefaultWindowSize
	}
	return &GridHandler{svc: svc, defaultWindowSize: defaultWindowSize}
}

// CreateTable registers a table.
func (h *GridHandler) CreateTable(ctx context.Context, req *dto.CreateTableRequest) (*grid.Table, error) {
	return h.svc.Tables.CreateTable(ctx, req.Name)
}

// GetColumns lists a table's columns in display order.
func (h *GridHandler) GetColumns(ctx context.Context, req *dto.GetColumnsRequest) (*dto.ColumnsResponse, error) {
	cols, err := h.svc.Columns.GetColumns(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if cols == nil {
		cols = []*grid.Column{}
	}
	return &dto.ColumnsResponse{Columns: cols}, nil
}

// CreateColumn appends a column and creates its indexes.
func (h *GridHandler) CreateColumn(ctx context.Context, req *dto.CreateColumnRequest) (*grid.Column, error) {
	return h.svc.Columns.CreateColumn(ctx, req.TableID, req.Name, req.Type)
}

// CreateRow appends an empty row.
func (h *GridHandler) CreateRow(ctx context.Context, req *dto.CreateRowRequest) (*dto.CreateRowResponse, error) {
	r, err := h.svc.Rows.CreateRow(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	return &dto.CreateRowResponse{ID: r.ID, Index: r.Index}, nil
}

// QueryRows returns one window of the filtered, sorted rows.
func (h *GridHandler) QueryRows(ctx context.Context, req *dto.QueryRowsRequest) (*grid.WindowResponse, error) {
	return h.svc.Windows.QueryWindow(ctx, req.WindowRequest(h.defaultWindowSize))
}

// UpdateCell overwrites one cell.
func (h *GridHandler) UpdateCell(ctx context.Context, req *dto.UpdateCellRequest) (*dto.UpdateCellResponse, error) {
	if err := h.svc.Rows.UpdateCell(ctx, req.RowID, req.ColumnID, req.Value); err != nil {
		return nil, err
	}
	return &dto.UpdateCellResponse{OK: true}, nil
}

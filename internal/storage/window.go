package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

// WindowService serves windows of the filtered, sorted row set of a table.
type WindowService struct {
	db      *DB
	columns *ColumnService
}

// NewWindowService creates a new window service.
func NewWindowService(db *DB, columns *ColumnService) *WindowService {
	return &WindowService{db: db, columns: columns}
}

// QueryWindow returns up to req.WindowSize rows starting at the clamped
// req.StartIndex.
//
// With no filters and no sort the window is read as a placement key range.
// Otherwise the plan is lowered to a filtered, ordered, offset query. The count
// and the page are read in the same transaction.
func (s *WindowService) QueryWindow(ctx context.Context, req *grid.WindowRequest) (*grid.WindowResponse, error) {
	if req.StartIndex < 0 {
		return nil, apierrors.BadRequest("start_index must not be negative")
	}
	if req.WindowSize < 1 || req.WindowSize > grid.MaxWindowSize {
		return nil, apierrors.BadRequest(fmt.Sprintf("window_size must be between 1 and %d", grid.MaxWindowSize))
	}
	tableID := grid.CanonicalID(req.TableID)
	cols, cached, err := s.columns.cachedColumns(ctx, tableID)
	if err != nil {
		return nil, err
	}
	plan, err := grid.Compile(tableID, cols, req.Filters, req.Sort)
	if cached && apierrors.HasCode(err, apierrors.ErrInvalidColumn) {
		// The column may have been created by another process.
		s.columns.cache.invalidate(tableID)
		if cols, _, err = s.columns.cachedColumns(ctx, tableID); err != nil {
			return nil, err
		}
		plan, err = grid.Compile(tableID, cols, req.Filters, req.Sort)
	}
	if err != nil {
		return nil, err
	}
	return s.queryPlan(ctx, plan, req.StartIndex, req.WindowSize)
}

func (s *WindowService) queryPlan(ctx context.Context, plan *grid.Plan, start, size int) (*grid.WindowResponse, error) {
	began := time.Now()
	tx, err := s.db.begin(ctx, s.db.dialect.readTxOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	path := "general"
	var resp *grid.WindowResponse
	if plan.FastPath() {
		path = "fast"
		resp, err = s.fastWindow(ctx, tx, plan.TableID, start, size)
	} else {
		resp, err = s.generalWindow(ctx, tx, plan, start, size)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish read: %w", err)
	}
	slog.DebugContext(ctx, "window query", "table", plan.TableID, "path", path, "total", resp.TotalCount, "start", resp.WindowStart, "rows", len(resp.Rows), "dur", time.Since(began).Round(time.Microsecond))
	return resp, nil
}

// fastWindow reads an unfiltered, unsorted window. Placement keys are dense
// from 0 unless rows were removed, in which case it falls back to offsetting
// in placement order.
func (s *WindowService) fastWindow(ctx context.Context, tx *tx, tableID string, start, size int) (*grid.WindowResponse, error) {
	var total int
	var maxIdx int64
	if err := tx.queryRow(ctx, `SELECT COUNT(*), COALESCE(MAX(idx), -1) FROM grid_rows WHERE table_id = ?`, tableID).Scan(&total, &maxIdx); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	resp := &grid.WindowResponse{Rows: []*grid.Row{}, TotalCount: total}
	if total == 0 {
		return resp, nil
	}
	resp.WindowStart = grid.ClampStart(start, total)
	var q string
	var args []any
	if maxIdx == int64(total-1) {
		q = `SELECT ` + rowFields + ` FROM grid_rows WHERE table_id = ? AND idx >= ? AND idx < ? ORDER BY idx ASC, id ASC`
		args = []any{tableID, resp.WindowStart, resp.WindowStart + size}
	} else {
		q = `SELECT ` + rowFields + ` FROM grid_rows WHERE table_id = ? ORDER BY idx ASC, id ASC LIMIT ? OFFSET ?`
		args = []any{tableID, size, resp.WindowStart}
	}
	rows, err := tx.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	if resp.Rows, err = scanRows(rows); err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		resp.Rows = []*grid.Row{}
	}
	return resp, nil
}

func (s *WindowService) generalWindow(ctx context.Context, tx *tx, plan *grid.Plan, start, size int) (*grid.WindowResponse, error) {
	l, err := lowerPlan(s.db.dialect, plan)
	if err != nil {
		return nil, apierrors.InternalWithError("failed to build query", err)
	}
	var total int
	if err := tx.queryRow(ctx, `SELECT COUNT(*) FROM grid_rows WHERE `+l.where, l.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}
	resp := &grid.WindowResponse{Rows: []*grid.Row{}, TotalCount: total}
	if total == 0 {
		return resp, nil
	}
	resp.WindowStart = grid.ClampStart(start, total)
	q := `SELECT ` + rowFields + ` FROM grid_rows WHERE ` + l.where + ` ORDER BY ` + l.orderBy + ` LIMIT ? OFFSET ?`
	args := append(append([]any{}, l.args...), size, resp.WindowStart)
	rows, err := tx.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	if resp.Rows, err = scanRows(rows); err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		resp.Rows = []*grid.Row{}
	}
	return resp, nil
}

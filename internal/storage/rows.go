package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

// placementAttempts bounds retries when concurrent inserts race for the same
// placement key or column position.
const placementAttempts = 5

// RowService reads and writes rows.
type RowService struct {
	db      *DB
	tables  *TableService
	columns *ColumnService
}

// NewRowService creates a new row service.
func NewRowService(db *DB, tables *TableService, columns *ColumnService) *RowService {
	return &RowService{db: db, tables: tables, columns: columns}
}

const rowFields = `id, table_id, idx, vals, created_at`

// CreateRow appends an empty row at the end of the table's placement order.
func (s *RowService) CreateRow(ctx context.Context, tableID string) (*grid.Row, error) {
	t, err := s.tables.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	tableID = t.ID
	r := &grid.Row{TableID: tableID, Values: map[string]any{}, Created: time.Now().UTC()}
	for attempt := range placementAttempts {
		r.ID = grid.NewID()
		err = s.db.queryRow(ctx, s.db.dialect.insertRowSQL(), r.ID, tableID, r.Created, tableID).Scan(&r.Index)
		if err == nil {
			return r, nil
		}
		if !s.db.dialect.isUniqueViolation(err) {
			break
		}
		slog.DebugContext(ctx, "row placement conflict", "table", tableID, "attempt", attempt)
	}
	return nil, apierrors.MutationFailed(err)
}

// GetRow retrieves a row by ID.
func (s *RowService) GetRow(ctx context.Context, id string) (*grid.Row, error) {
	if !grid.ValidID(id) {
		return nil, apierrors.InvalidIdentifier("row_id", id)
	}
	id = grid.CanonicalID(id)
	rows, err := s.db.query(ctx, `SELECT `+rowFields+` FROM grid_rows WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query row: %w", err)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apierrors.NotFound("row")
	}
	return out[0], nil
}

// UpdateCell overwrites one cell of a row. Other keys of the row are left
// untouched, so concurrent writers on different columns do not conflict.
// The value is coerced according to the column type first.
func (s *RowService) UpdateCell(ctx context.Context, rowID, columnID string, value any) error {
	if !grid.ValidID(rowID) {
		return apierrors.InvalidIdentifier("row_id", rowID)
	}
	if !grid.ValidID(columnID) {
		return apierrors.InvalidIdentifier("column_id", columnID)
	}
	// The column id is also the key inside vals, so it must be the stored form.
	rowID, columnID = grid.CanonicalID(rowID), grid.CanonicalID(columnID)
	var tableID string
	err := s.db.queryRow(ctx, `SELECT table_id FROM grid_rows WHERE id = ?`, rowID).Scan(&tableID)
	if errors.Is(err, sql.ErrNoRows) {
		return apierrors.NotFound("row")
	}
	if err != nil {
		return fmt.Errorf("failed to read row: %w", err)
	}
	colTable, typ, err := s.columns.columnTable(ctx, columnID)
	if err != nil {
		return err
	}
	if colTable != tableID {
		return apierrors.InvalidColumn(columnID)
	}
	v, err := grid.CoerceCellValue(typ, value)
	if err != nil {
		return apierrors.BadRequest(err.Error())
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return apierrors.BadRequest("value is not representable as JSON").Wrap(err)
	}
	res, err := s.db.exec(ctx, s.db.dialect.setCellSQL(), columnID, string(raw), rowID, tableID)
	if err != nil {
		return apierrors.MutationFailed(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apierrors.NotFound("row")
	}
	return nil
}

// scanRows reads and closes rows selected with rowFields.
func scanRows(rows *sql.Rows) ([]*grid.Row, error) {
	defer func() { _ = rows.Close() }()
	var out []*grid.Row
	for rows.Next() {
		r := &grid.Row{}
		var vals []byte
		if err := rows.Scan(&r.ID, &r.TableID, &r.Index, &vals, &r.Created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Values = map[string]any{}
		if len(vals) > 0 {
			if err := json.Unmarshal(vals, &r.Values); err != nil {
				return nil, fmt.Errorf("failed to decode row %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

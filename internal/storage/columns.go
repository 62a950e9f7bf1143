package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

// MaxColumnNameLength is the longest accepted column name, in characters.
const MaxColumnNameLength = 120

// ColumnService manages table columns.
type ColumnService struct {
	db      *DB
	tables  *TableService
	indexes *IndexManager
	cache   *columnCache
}

// NewColumnService creates a new column service.
func NewColumnService(db *DB, tables *TableService, indexes *IndexManager) *ColumnService {
	return &ColumnService{db: db, tables: tables, indexes: indexes, cache: newColumnCache()}
}

const columnFields = `id, table_id, name, type, order_index, hidden, config`

// GetColumns returns the columns of a table ordered by display position.
func (s *ColumnService) GetColumns(ctx context.Context, tableID string) ([]*grid.Column, error) {
	t, err := s.tables.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	tableID = t.ID
	return s.listColumns(ctx, `SELECT `+columnFields+` FROM grid_columns WHERE table_id = ? ORDER BY order_index, id`, tableID)
}

// cachedColumns is GetColumns served from the cache when possible. The
// returned slice is shared and must not be modified. cached reports whether
// it came from the cache.
func (s *ColumnService) cachedColumns(ctx context.Context, tableID string) (cols []*grid.Column, cached bool, err error) {
	tableID = grid.CanonicalID(tableID)
	if cols, ok := s.cache.get(tableID); ok {
		return cols, true, nil
	}
	cols, err = s.GetColumns(ctx, tableID)
	if err != nil {
		return nil, false, err
	}
	s.cache.put(tableID, cols)
	return cols, false, nil
}

// AllColumns returns every column of every table.
func (s *ColumnService) AllColumns(ctx context.Context) ([]*grid.Column, error) {
	return s.listColumns(ctx, `SELECT `+columnFields+` FROM grid_columns ORDER BY table_id, order_index, id`)
}

// GetColumn retrieves a column by ID.
func (s *ColumnService) GetColumn(ctx context.Context, id string) (*grid.Column, error) {
	if !grid.ValidID(id) {
		return nil, apierrors.InvalidIdentifier("column_id", id)
	}
	id = grid.CanonicalID(id)
	cols, err := s.listColumns(ctx, `SELECT `+columnFields+` FROM grid_columns WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, apierrors.NotFound("column")
	}
	return cols[0], nil
}

// CreateColumn appends a column to a table and creates its indexes before
// returning. If index creation fails the column is kept and the error is
// returned; the reconciliation job retries it.
func (s *ColumnService) CreateColumn(ctx context.Context, tableID, name string, t grid.ColumnType) (*grid.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierrors.BadRequest("name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxColumnNameLength {
		return nil, apierrors.BadRequest(fmt.Sprintf("name exceeds %d characters", MaxColumnNameLength))
	}
	if !t.Valid() {
		return nil, apierrors.BadRequest("invalid column type " + string(t))
	}
	tbl, err := s.tables.GetTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	tableID = tbl.ID

	c := &grid.Column{TableID: tableID, Name: name, Type: t}
	for attempt := range placementAttempts {
		c.ID = grid.NewID()
		if err = s.insertColumn(ctx, c); err == nil || !s.db.dialect.isUniqueViolation(err) {
			break
		}
		slog.DebugContext(ctx, "column order conflict", "table", tableID, "attempt", attempt)
	}
	if err != nil {
		return nil, apierrors.MutationFailed(err)
	}
	s.cache.invalidate(tableID)
	if err := s.indexes.EnsureIndexes(ctx, tableID, c.ID, t); err != nil {
		slog.ErrorContext(ctx, "column indexes", "table", tableID, "column", c.ID, "err", err)
		return nil, err
	}
	return c, nil
}

// insertColumn appends c after the table's last column, setting its
// OrderIndex.
func (s *ColumnService) insertColumn(ctx context.Context, c *grid.Column) error {
	tx, err := s.db.begin(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := tx.queryRow(ctx, `SELECT COALESCE(MAX(order_index), -1) + 1 FROM grid_columns WHERE table_id = ?`, c.TableID).Scan(&c.OrderIndex); err != nil {
		return fmt.Errorf("failed to read column order: %w", err)
	}
	if _, err := tx.exec(ctx,
		`INSERT INTO grid_columns (id, table_id, name, type, order_index, hidden, config, created_at) VALUES (?, ?, ?, ?, ?, FALSE, NULL, ?)`,
		c.ID, c.TableID, c.Name, string(c.Type), c.OrderIndex, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert column: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit column: %w", err)
	}
	return nil
}

func (s *ColumnService) listColumns(ctx context.Context, q string, args ...any) ([]*grid.Column, error) {
	rows, err := s.db.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []*grid.Column
	for rows.Next() {
		c := &grid.Column{}
		var typ string
		var cfg []byte
		if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &typ, &c.OrderIndex, &c.Hidden, &cfg); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		c.Type = grid.ColumnType(typ)
		if len(cfg) > 0 && string(cfg) != "null" {
			c.Config = json.RawMessage(cfg)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	return out, nil
}

// columnTable returns the table and type of a column.
func (s *ColumnService) columnTable(ctx context.Context, id string) (string, grid.ColumnType, error) {
	var tableID, typ string
	err := s.db.queryRow(ctx, `SELECT table_id, type FROM grid_columns WHERE id = ?`, id).Scan(&tableID, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", apierrors.NotFound("column")
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read column: %w", err)
	}
	return tableID, grid.ColumnType(typ), nil
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

const (
	suffixNumSort = "num_sort"
	suffixTxtSort = "txt_sort"
	suffixTxtTrgm = "txt_trgm"
)

var indexNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// IndexManager creates the per column expression indexes on grid_rows.
type IndexManager struct {
	db *DB

	mu       sync.Mutex
	trgmDone bool
	trgmOK   bool
}

// NewIndexManager creates a new index manager.
func NewIndexManager(db *DB) *IndexManager {
	return &IndexManager{db: db}
}

// IndexName returns the name of the index with suffix for a column.
func IndexName(tableID, columnID, suffix string) (string, error) {
	if !grid.ValidID(tableID) {
		return "", apierrors.InvalidIdentifier("table_id", tableID)
	}
	if !grid.ValidID(columnID) {
		return "", apierrors.InvalidIdentifier("column_id", columnID)
	}
	name := "r_" + grid.ShortID(tableID) + "_" + grid.ShortID(columnID) + "_" + suffix
	if !indexNameRe.MatchString(name) {
		return "", apierrors.InvalidIdentifier("index_name", name)
	}
	return name, nil
}

// EnsureIndexes creates the indexes backing filters and sorts on a column.
// It is idempotent.
//
// Number columns get a partial index on the numeric form. Other columns get
// an index on the string form plus, where the database supports it, a
// trigram index for substring search.
func (m *IndexManager) EnsureIndexes(ctx context.Context, tableID, columnID string, t grid.ColumnType) error {
	d := m.db.dialect
	if t.Numeric() {
		name, err := IndexName(tableID, columnID, suffixNumSort)
		if err != nil {
			return err
		}
		expr := numExpr(d, columnID)
		q := `CREATE INDEX IF NOT EXISTS ` + name + ` ON grid_rows (table_id, ` + expr + `) WHERE ` + expr + ` IS NOT NULL`
		if _, err := m.db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		return nil
	}

	name, err := IndexName(tableID, columnID, suffixTxtSort)
	if err != nil {
		return err
	}
	trgm, err := IndexName(tableID, columnID, suffixTxtTrgm)
	if err != nil {
		return err
	}
	q := `CREATE INDEX IF NOT EXISTS ` + name + ` ON grid_rows (table_id, ` + d.sortExpr(columnID) + `)`
	if _, err := m.db.conn.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	ok, err := m.prepareTrigram(ctx)
	if err != nil {
		return fmt.Errorf("failed to enable trigram indexing: %w", err)
	}
	if !ok {
		slog.DebugContext(ctx, "trigram index skipped", "driver", d.driverName(), "index", trgm)
		return nil
	}
	if _, err := m.db.conn.ExecContext(ctx, d.trigramIndexSQL(trgm, columnID)); err != nil {
		return fmt.Errorf("failed to create index %s: %w", trgm, err)
	}
	return nil
}

// prepareTrigram runs once per process on success; failures are retried on
// the next call.
func (m *IndexManager) prepareTrigram(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trgmDone {
		return m.trgmOK, nil
	}
	ok, err := m.db.dialect.prepareTrigram(ctx, m.db.conn)
	if err != nil {
		return false, err
	}
	m.trgmDone, m.trgmOK = true, ok
	return ok, nil
}

// ListIndexes returns the names of the per column indexes present on grid_rows.
func (m *IndexManager) ListIndexes(ctx context.Context) ([]string, error) {
	var q string
	switch m.db.dialect.driverName() {
	case "postgres":
		q = `SELECT indexname FROM pg_indexes WHERE tablename = 'grid_rows' AND indexname LIKE 'r\_%' ORDER BY indexname`
	default:
		q = `SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'grid_rows' AND name LIKE 'r\_%' ESCAPE '\' ORDER BY name`
	}
	rows, err := m.db.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

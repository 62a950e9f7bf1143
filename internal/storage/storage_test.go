package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/maruel/sheetgrid/internal/grid"
)

// newTestServices opens a fresh SQLite database in a temporary directory.
func newTestServices(t *testing.T) (*DB, *Services) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, NewServices(db)
}

func newTestTable(t *testing.T, s *Services) *grid.Table {
	t.Helper()
	tbl, err := s.Tables.CreateTable(context.Background(), "Test")
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	return tbl
}

func newTestColumn(t *testing.T, s *Services, tableID, name string, typ grid.ColumnType) *grid.Column {
	t.Helper()
	c, err := s.Columns.CreateColumn(context.Background(), tableID, name, typ)
	if err != nil {
		t.Fatalf("CreateColumn: %v", err)
	}
	return c
}

func newTestRows(t *testing.T, s *Services, tableID string, n int) []*grid.Row {
	t.Helper()
	out := make([]*grid.Row, 0, n)
	for range n {
		r, err := s.Rows.CreateRow(context.Background(), tableID)
		if err != nil {
			t.Fatalf("CreateRow: %v", err)
		}
		out = append(out, r)
	}
	return out
}

// bulkInsertRows writes rows directly with the given values, bypassing
// CreateRow for speed.
func bulkInsertRows(t *testing.T, db *DB, tableID string, values func(i int) map[string]any, n int) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.begin(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tx.Rollback() }()
	var base int64
	if err := tx.queryRow(ctx, `SELECT COALESCE(MAX(idx), -1) + 1 FROM grid_rows WHERE table_id = ?`, tableID).Scan(&base); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UTC()
	for i := range n {
		raw, err := json.Marshal(values(i))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tx.exec(ctx, `INSERT INTO grid_rows (id, table_id, idx, vals, created_at) VALUES (?, ?, ?, ?, ?)`,
			grid.NewID(), tableID, base+int64(i), string(raw), now); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func rowIDs(rows []*grid.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

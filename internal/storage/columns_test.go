package storage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

func TestCreateColumn(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	tbl := newTestTable(t, s)

	name := newTestColumn(t, s, tbl.ID, "  Name  ", grid.ColumnText)
	age := newTestColumn(t, s, tbl.ID, "Age", grid.ColumnNumber)
	if name.Name != "Name" {
		t.Errorf("name not trimmed: %q", name.Name)
	}
	if name.OrderIndex != 0 || age.OrderIndex != 1 {
		t.Errorf("order indexes = %d, %d", name.OrderIndex, age.OrderIndex)
	}

	cols, err := s.Columns.GetColumns(ctx, tbl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0].ID != name.ID || cols[1].ID != age.ID {
		t.Fatalf("GetColumns = %+v", cols)
	}
	if cols[1].Type != grid.ColumnNumber || cols[1].Hidden || cols[1].Config != nil {
		t.Errorf("column = %+v", cols[1])
	}

	names, err := s.Indexes.ListIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{}
	for _, n := range []string{
		mustIndexName(t, tbl.ID, name.ID, suffixTxtSort),
		mustIndexName(t, tbl.ID, age.ID, suffixNumSort),
	} {
		want[n] = true
	}
	for _, n := range names {
		delete(want, n)
	}
	if len(want) != 0 {
		t.Errorf("missing indexes %v in %v", want, names)
	}
}

func TestCreateColumnErrors(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	tbl := newTestTable(t, s)
	tests := []struct {
		name    string
		tableID string
		col     string
		typ     grid.ColumnType
		code    apierrors.ErrorCode
	}{
		{"empty name", tbl.ID, "   ", grid.ColumnText, apierrors.ErrValidationFailed},
		{"long name", tbl.ID, strings.Repeat("x", MaxColumnNameLength+1), grid.ColumnText, apierrors.ErrValidationFailed},
		{"bad type", tbl.ID, "When", "date", apierrors.ErrValidationFailed},
		{"missing table", grid.NewID(), "Name", grid.ColumnText, apierrors.ErrNotFound},
		{"malformed table", "t1", "Name", grid.ColumnText, apierrors.ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Columns.CreateColumn(ctx, tt.tableID, tt.col, tt.typ)
			if !apierrors.HasCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}

	t.Run("max length accepted", func(t *testing.T) {
		if _, err := s.Columns.CreateColumn(ctx, tbl.ID, strings.Repeat("é", MaxColumnNameLength), grid.ColumnText); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCreateColumnConcurrent(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	tbl := newTestTable(t, s)

	const n = 10
	var wg sync.WaitGroup
	order := make(chan int, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.Columns.CreateColumn(ctx, tbl.ID, "Col", []grid.ColumnType{grid.ColumnText, grid.ColumnNumber}[i%2])
			if err != nil {
				t.Errorf("CreateColumn: %v", err)
				return
			}
			order <- c.OrderIndex
		}()
	}
	wg.Wait()
	close(order)
	seen := map[int]bool{}
	for o := range order {
		if seen[o] {
			t.Errorf("duplicate order index %d", o)
		}
		seen[o] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct order indexes, want %d", len(seen), n)
	}
}

func TestColumnOrderUnique(t *testing.T) {
	ctx := context.Background()
	db, s := newTestServices(t)
	tbl := newTestTable(t, s)
	c := newTestColumn(t, s, tbl.ID, "Name", grid.ColumnText)
	_, err := db.exec(ctx, `INSERT INTO grid_columns (id, table_id, name, type, order_index, hidden, config, created_at) VALUES (?, ?, ?, ?, ?, FALSE, NULL, ?)`,
		grid.NewID(), tbl.ID, "Other", string(grid.ColumnText), c.OrderIndex, time.Now().UTC())
	if err == nil {
		t.Fatal("expected constraint error")
	}
	if !db.dialect.isUniqueViolation(err) {
		t.Errorf("isUniqueViolation(%v) = false", err)
	}
}

func TestCreateColumnUppercaseTable(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	tbl := newTestTable(t, s)
	c, err := s.Columns.CreateColumn(ctx, strings.ToUpper(tbl.ID), "Name", grid.ColumnText)
	if err != nil {
		t.Fatal(err)
	}
	if c.TableID != tbl.ID {
		t.Errorf("table id = %q, want %q", c.TableID, tbl.ID)
	}
	cols, err := s.Columns.GetColumns(ctx, strings.ToUpper(tbl.ID))
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].ID != c.ID {
		t.Errorf("GetColumns = %+v", cols)
	}
}

func mustIndexName(t *testing.T, tableID, columnID, suffix string) string {
	t.Helper()
	n, err := IndexName(tableID, columnID, suffix)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

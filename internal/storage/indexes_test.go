package storage

import (
	"context"
	"testing"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

func TestIndexName(t *testing.T) {
	got, err := IndexName("6F1C1C2E-9A4B-4C1D-8E2F-0A1B2C3D4E5F", "0a1b2c3d-4e5f-4a1b-9c2d-3e4f5a6b7c8d", suffixNumSort)
	if err != nil {
		t.Fatal(err)
	}
	if want := "r_6f1c1c2e9a4b_0a1b2c3d4e5f_num_sort"; got != want {
		t.Errorf("IndexName = %q, want %q", got, want)
	}

	for _, tt := range []struct{ table, col, suffix string }{
		{"x", grid.NewID(), suffixTxtSort},
		{grid.NewID(), "y\"; DROP TABLE grid_rows; --", suffixTxtSort},
		{grid.NewID(), grid.NewID(), "Bad-Suffix"},
	} {
		if _, err := IndexName(tt.table, tt.col, tt.suffix); !apierrors.HasCode(err, apierrors.ErrInvalidIdentifier) {
			t.Errorf("IndexName(%q, %q, %q): expected invalid identifier, got %v", tt.table, tt.col, tt.suffix, err)
		}
	}
}

func TestEnsureIndexesIdempotent(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	tbl := newTestTable(t, s)
	num := newTestColumn(t, s, tbl.ID, "Amount", grid.ColumnNumber)
	txt := newTestColumn(t, s, tbl.ID, "Label", grid.ColumnSingleSelect)

	before, err := s.Indexes.ListIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := s.Indexes.EnsureIndexes(ctx, tbl.ID, num.ID, num.Type); err != nil {
			t.Fatalf("EnsureIndexes(number): %v", err)
		}
		if err := s.Indexes.EnsureIndexes(ctx, tbl.ID, txt.ID, txt.Type); err != nil {
			t.Fatalf("EnsureIndexes(text): %v", err)
		}
	}
	after, err := s.Indexes.ListIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 2 || len(after) != len(before) {
		t.Errorf("indexes before %v, after %v", before, after)
	}
}

func TestEnsureIndexesRejectsMalformedIDs(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)
	err := s.Indexes.EnsureIndexes(ctx, grid.NewID(), "col') OR 1=1", grid.ColumnText)
	if !apierrors.HasCode(err, apierrors.ErrInvalidIdentifier) {
		t.Errorf("expected invalid identifier, got %v", err)
	}
	names, err := s.Indexes.ListIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("unexpected indexes %v", names)
	}
}

func TestReconcileIndexes(t *testing.T) {
	ctx := context.Background()
	db, s := newTestServices(t)
	tbl := newTestTable(t, s)
	c := newTestColumn(t, s, tbl.ID, "Amount", grid.ColumnNumber)
	newTestColumn(t, s, tbl.ID, "Label", grid.ColumnText)

	name := mustIndexName(t, tbl.ID, c.ID, suffixNumSort)
	if _, err := db.conn.ExecContext(ctx, `DROP INDEX `+name); err != nil {
		t.Fatal(err)
	}
	n, err := ReconcileIndexes(ctx, s.Columns, s.Indexes)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("reconciled %d columns, want 2", n)
	}
	names, err := s.Indexes.ListIndexes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, got := range names {
		found = found || got == name
	}
	if !found {
		t.Errorf("index %s not recreated: %v", name, names)
	}
	if _, err := ReconcileIndexes(ctx, s.Columns, s.Indexes); err != nil {
		t.Errorf("second pass: %v", err)
	}
}

func TestNewReconcilerRejectsBadSchedule(t *testing.T) {
	_, s := newTestServices(t)
	if _, err := NewReconciler(s.Columns, s.Indexes, "every now and then"); err == nil {
		t.Error("expected error")
	}
	if _, err := NewReconciler(s.Columns, s.Indexes, "@every 1h"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

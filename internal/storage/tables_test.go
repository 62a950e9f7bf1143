package storage

import (
	"context"
	"testing"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
)

func TestTableService(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServices(t)

	t.Run("create and get", func(t *testing.T) {
		tbl, err := s.Tables.CreateTable(ctx, "  Projects ")
		if err != nil {
			t.Fatal(err)
		}
		if tbl.Name != "Projects" {
			t.Errorf("name = %q", tbl.Name)
		}
		got, err := s.Tables.GetTable(ctx, tbl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != tbl.ID || got.Name != "Projects" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if _, err := s.Tables.CreateTable(ctx, " "); !apierrors.HasCode(err, apierrors.ErrValidationFailed) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := s.Tables.GetTable(ctx, grid.NewID()); !apierrors.HasCode(err, apierrors.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		if _, err := s.Tables.GetTable(ctx, "1 OR 1=1"); !apierrors.HasCode(err, apierrors.ErrInvalidIdentifier) {
			t.Errorf("expected invalid identifier, got %v", err)
		}
	})
}

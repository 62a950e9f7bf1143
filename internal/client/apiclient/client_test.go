package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	apierrors "github.com/maruel/sheetgrid/internal/errors"
	"github.com/maruel/sheetgrid/internal/grid"
	"github.com/maruel/sheetgrid/internal/server"
	"github.com/maruel/sheetgrid/internal/storage"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "grid.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ts := httptest.NewServer(server.NewRouter(db, storage.NewServices(db), &server.Options{}))
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", WithHTTPClient(ts.Client()))
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	tbl, err := c.CreateTable(ctx, "Inventory")
	if err != nil {
		t.Fatal(err)
	}
	item, err := c.CreateColumn(ctx, tbl.ID, "Item", grid.ColumnText)
	if err != nil {
		t.Fatal(err)
	}
	qty, err := c.CreateColumn(ctx, tbl.ID, "Qty", grid.ColumnNumber)
	if err != nil {
		t.Fatal(err)
	}
	cols, err := c.GetColumns(ctx, tbl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0].ID != item.ID || cols[1].ID != qty.ID {
		t.Fatalf("columns = %+v", cols)
	}

	for i, v := range []string{"bolt", "nut", "washer"} {
		row, err := c.CreateRow(ctx, tbl.ID)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.UpdateCell(ctx, row.ID, item.ID, v); err != nil {
			t.Fatal(err)
		}
		if err := c.UpdateCell(ctx, row.ID, qty.ID, float64(10*(i+1))); err != nil {
			t.Fatal(err)
		}
	}

	win, err := c.QueryWindow(ctx, &grid.WindowRequest{
		TableID:    tbl.ID,
		WindowSize: 10,
		Sort:       []grid.Sort{{ColumnID: qty.ID, Direction: grid.SortDesc}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if win.TotalCount != 3 || len(win.Rows) != 3 {
		t.Fatalf("window = %+v", win)
	}
	if got := win.Rows[0].Values[item.ID]; got != "washer" {
		t.Errorf("first row = %v, want washer", got)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.GetColumns(ctx, grid.NewID())
	if !apierrors.HasCode(err, apierrors.ErrNotFound) {
		t.Errorf("GetColumns(missing) = %v", err)
	}
	tbl, err := c.CreateTable(ctx, "T")
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.QueryWindow(ctx, &grid.WindowRequest{
		TableID: tbl.ID,
		Filters: []grid.Filter{{ColumnID: grid.NewID(), Operator: grid.OpIs, Value: "x"}},
	})
	if !apierrors.HasCode(err, apierrors.ErrInvalidColumn) {
		t.Errorf("QueryWindow(unknown column) = %v", err)
	}
}

func TestClientNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()
	c := New(ts.URL, WithToken("tok"))
	_, err := c.CreateTable(context.Background(), "x")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) || ews.StatusCode() != http.StatusBadGateway || ews.Code() != apierrors.ErrInternal {
		t.Fatalf("err = %v", err)
	}
}

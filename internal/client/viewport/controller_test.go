package viewport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/maruel/sheetgrid/internal/grid"
)

// fakeFetcher serves a table of total rows whose IDs are their positions.
// When gate is set, each call blocks until a value is received from it.
type fakeFetcher struct {
	total int
	gate  chan struct{}
	err   error

	mu    sync.Mutex
	reqs  []grid.WindowRequest
	calls chan struct{}
}

func newFakeFetcher(total int) *fakeFetcher {
	return &fakeFetcher{total: total, calls: make(chan struct{}, 100)}
}

func (f *fakeFetcher) QueryWindow(ctx context.Context, req *grid.WindowRequest) (*grid.WindowResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, *req)
	f.mu.Unlock()
	f.calls <- struct{}{}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	start := grid.ClampStart(req.StartIndex, f.total)
	resp := &grid.WindowResponse{TotalCount: f.total, WindowStart: start, Rows: []*grid.Row{}}
	for i := start; i < min(start+req.WindowSize, f.total); i++ {
		resp.Rows = append(resp.Rows, &grid.Row{ID: fmt.Sprint(i), Index: int64(i)})
	}
	return resp, nil
}

func (f *fakeFetcher) starts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, r := range f.reqs {
		out = append(out, r.StartIndex)
	}
	return out
}

func TestControllerScroll(t *testing.T) {
	f := newFakeFetcher(5000)
	c := New(f, "t", Options{WindowSize: 300})
	defer c.Close()

	if c.Scroll(290, 310) {
		t.Fatal("Scroll before the first window must not fetch")
	}
	c.Refresh()
	c.Wait()
	if c.Scroll(100, 120) {
		t.Error("Scroll inside the window fetched")
	}
	if !c.Scroll(290, 310) {
		t.Fatal("Scroll near the edge did not fetch")
	}
	c.Wait()
	if got := f.starts(); len(got) != 2 || got[1] != 150 {
		t.Fatalf("starts = %v", got)
	}
	resp, err := c.Snapshot()
	if err != nil || resp.WindowStart != 150 || len(resp.Rows) != 300 {
		t.Fatalf("snapshot = %+v, %v", resp, err)
	}
	if r, ok := c.RowAt(300); !ok || r.ID != "300" {
		t.Errorf("RowAt(300) = %v, %v", r, ok)
	}
	if _, ok := c.RowAt(10); ok {
		t.Error("RowAt outside the window succeeded")
	}
}

func TestControllerSkipsWhileFetching(t *testing.T) {
	f := newFakeFetcher(5000)
	c := New(f, "t", Options{WindowSize: 300})
	defer c.Close()
	c.Refresh()
	c.Wait()

	f.gate = make(chan struct{})
	if !c.Scroll(290, 310) {
		t.Fatal("first scroll did not fetch")
	}
	<-f.calls
	<-f.calls
	if c.Scroll(1000, 1020) {
		t.Error("scroll during a fetch started another one")
	}
	// The old window stays visible meanwhile.
	if resp, _ := c.Snapshot(); resp == nil || resp.WindowStart != 0 {
		t.Errorf("snapshot during fetch = %+v", resp)
	}
	// Completing the fetch re-evaluates the latest visible range.
	f.gate <- struct{}{}
	<-f.calls
	f.gate <- struct{}{}
	c.Wait()
	if got := f.starts(); len(got) != 3 || got[1] != 150 || got[2] != 860 {
		t.Fatalf("starts = %v", got)
	}
}

func TestControllerDropsSuperseded(t *testing.T) {
	f := newFakeFetcher(5000)
	f.gate = make(chan struct{})
	var mu sync.Mutex
	var updates []int
	c := New(f, "t", Options{WindowSize: 100, OnUpdate: func(resp *grid.WindowResponse, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			updates = append(updates, resp.WindowStart)
		}
	}})
	defer c.Close()

	c.JumpTo(1000)
	<-f.calls
	c.SetQuery([]grid.Filter{{ColumnID: "x", Operator: grid.OpIsNotEmpty}}, nil)
	<-f.calls
	f.gate <- struct{}{}
	f.gate <- struct{}{}
	c.Wait()

	if got := f.starts(); len(got) != 2 || got[0] != 950 || got[1] != 0 {
		t.Fatalf("starts = %v", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1 || updates[0] != 0 {
		t.Errorf("updates = %v, want only the newest query", updates)
	}
	if resp, _ := c.Snapshot(); resp.WindowStart != 0 {
		t.Errorf("window start = %d", resp.WindowStart)
	}
}

func TestControllerKeepsLastGoodOnError(t *testing.T) {
	f := newFakeFetcher(500)
	c := New(f, "t", Options{WindowSize: 100})
	defer c.Close()
	c.Refresh()
	c.Wait()

	f.err = errors.New("boom")
	c.JumpTo(400)
	c.Wait()
	resp, err := c.Snapshot()
	if err == nil || resp == nil || resp.WindowStart != 0 {
		t.Fatalf("snapshot = %+v, %v", resp, err)
	}
	if c.Fetching() {
		t.Error("still fetching after error")
	}
}

func TestControllerClose(t *testing.T) {
	f := newFakeFetcher(500)
	f.gate = make(chan struct{})
	c := New(f, "t", Options{})
	if c.WindowSize() != grid.DefaultWindowSize {
		t.Errorf("window size = %d", c.WindowSize())
	}
	c.Refresh()
	<-f.calls
	c.Close()
	if _, err := c.Snapshot(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	c.Refresh()
	if c.Fetching() {
		t.Error("fetch started after Close")
	}
}

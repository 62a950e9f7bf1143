package viewport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maruel/sheetgrid/internal/grid"
)

// Fetcher serves windows of rows. *apiclient.Client implements it.
type Fetcher interface {
	QueryWindow(ctx context.Context, req *grid.WindowRequest) (*grid.WindowResponse, error)
}

// Options configures a Controller.
type Options struct {
	// WindowSize is fixed for the controller's lifetime. Defaults to
	// grid.DefaultWindowSize.
	WindowSize int
	// OnUpdate is called after every accepted response or failed fetch. It runs
	// on the fetching goroutine without any lock held.
	OnUpdate func(resp *grid.WindowResponse, err error)
}

// Controller tracks the loaded window of one table and refetches it as the
// visible range moves. At most one scroll driven fetch is in flight; query
// changes supersede it and responses of superseded requests are dropped.
type Controller struct {
	fetch      Fetcher
	tableID    string
	windowSize int
	onUpdate   func(*grid.WindowResponse, error)
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	startIndex int
	totalCount int
	filters    []grid.Filter
	sort       []grid.Sort
	fetching   bool
	gen        uint64
	visible    [2]int
	hasVisible bool
	last       *grid.WindowResponse
	lastErr    error
}

// New creates a controller for tableID. Nothing is fetched until Refresh,
// SetQuery or JumpTo is called.
func New(f Fetcher, tableID string, opts Options) *Controller {
	ws := opts.WindowSize
	if ws <= 0 || ws > grid.MaxWindowSize {
		ws = grid.DefaultWindowSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetch:      f,
		tableID:    tableID,
		windowSize: ws,
		onUpdate:   opts.OnUpdate,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// WindowSize returns the fixed window size.
func (c *Controller) WindowSize() int {
	return c.windowSize
}

// Scroll records the visible range and fetches a recentered window if the
// range nears an edge of the loaded one. It is a no-op while a fetch is in
// flight; the range is re-evaluated when that fetch completes. It returns
// whether a fetch was started.
func (c *Controller) Scroll(visibleFirst, visibleLast int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = [2]int{visibleFirst, visibleLast}
	c.hasVisible = true
	return c.recenterLocked()
}

// SetQuery replaces the filters and sort and fetches from the top.
func (c *Controller) SetQuery(filters []grid.Filter, sort []grid.Sort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append([]grid.Filter(nil), filters...)
	c.sort = append([]grid.Sort(nil), sort...)
	c.startLocked(0)
}

// JumpTo fetches a window centered on index, e.g. a freshly created row.
func (c *Controller) JumpTo(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(max(0, index-c.windowSize/2))
}

// Refresh refetches the current window, e.g. after the data changed.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked(c.startIndex)
}

// Snapshot returns the last successfully loaded window, which stays valid
// while a newer one is being fetched, and the error of the latest fetch if it
// failed.
func (c *Controller) Snapshot() (*grid.WindowResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.lastErr
}

// RowAt returns the loaded row at absolute position index.
func (c *Controller) RowAt(index int) (*grid.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil, false
	}
	i := index - c.last.WindowStart
	if i < 0 || i >= len(c.last.Rows) {
		return nil, false
	}
	return c.last.Rows[i], true
}

// Fetching reports whether a fetch is in flight.
func (c *Controller) Fetching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetching
}

// Wait blocks until every started fetch has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight fetches and waits for them.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) recenterLocked() bool {
	if c.fetching || !c.hasVisible || c.last == nil {
		return false
	}
	start, ok := Recenter(c.visible[0], c.visible[1], c.startIndex, c.windowSize, c.totalCount)
	if !ok {
		return false
	}
	c.startLocked(start)
	return true
}

func (c *Controller) startLocked(start int) {
	if c.ctx.Err() != nil {
		return
	}
	c.gen++
	gen := c.gen
	c.fetching = true
	c.startIndex = start
	req := &grid.WindowRequest{
		TableID:    c.tableID,
		StartIndex: start,
		WindowSize: c.windowSize,
		Filters:    c.filters,
		Sort:       c.sort,
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.fetch.QueryWindow(c.ctx, req)
		c.apply(gen, resp, err)
	}()
}

func (c *Controller) apply(gen uint64, resp *grid.WindowResponse, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		slog.Debug("viewport: dropping superseded window", "table", c.tableID, "gen", gen)
		return
	}
	c.fetching = false
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		slog.Warn("viewport: fetch failed", "table", c.tableID, "err", err)
		if c.onUpdate != nil {
			c.onUpdate(nil, err)
		}
		return
	}
	c.last = resp
	c.lastErr = nil
	c.startIndex = resp.WindowStart
	c.totalCount = resp.TotalCount
	// The visible range may have moved while the fetch was in flight.
	c.recenterLocked()
	c.mu.Unlock()
	if c.onUpdate != nil {
		c.onUpdate(resp, nil)
	}
}

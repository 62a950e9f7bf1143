// Package editsession buffers cell edits and commits them to the server after
// a debounce interval, tracking the save state of every edited cell.
package editsession

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the delay between the last queued edit and its commit.
const DefaultDebounce = 500 * time.Millisecond

// CellKey identifies one cell.
type CellKey struct {
	RowID    string
	ColumnID string
}

// State is the save state of one cell.
type State int

const (
	// Idle cells have nothing pending.
	Idle State = iota
	// Queued cells wait for their debounce timer.
	Queued
	// Saving cells have a request in flight.
	Saving
	// Saved cells were written by their latest commit.
	Saved
	// Error cells failed their latest commit. There is no automatic retry.
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Queued:
		return "queued"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the aggregate save state shown to the user.
type Status string

// Aggregate statuses.
const (
	StatusSaved  Status = "saved"
	StatusSaving Status = "saving"
	StatusError  Status = "error"
)

// Updater writes one cell. *apiclient.Client implements it.
type Updater interface {
	UpdateCell(ctx context.Context, rowID, columnID string, value any) error
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Session.
type Options struct {
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// Scheduler defaults to time.AfterFunc.
	Scheduler Scheduler
	// OnChange is called without any lock held whenever a cell's state changes.
	OnChange func(key CellKey, state State)
}

type cell struct {
	draft    string
	hasDraft bool
	state    State
	err      error
	timer    Timer
	timerSeq uint64
	gen      uint64
}

// Session holds the drafts and save states of one editing session.
type Session struct {
	up       Updater
	debounce time.Duration
	sched    Scheduler
	onChange func(CellKey, State)
	wg       sync.WaitGroup

	mu     sync.Mutex
	cells  map[CellKey]*cell
	closed bool
}

// New creates a session writing through up.
func New(up Updater, opts Options) *Session {
	s := &Session{
		up:       up,
		debounce: opts.Debounce,
		sched:    opts.Scheduler,
		onChange: opts.OnChange,
		cells:    map[CellKey]*cell{},
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.sched == nil {
		s.sched = realScheduler{}
	}
	return s
}

// SetDraft replaces the draft text of a cell. It does not schedule a save.
func (s *Session) SetDraft(key CellKey, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	c := s.cellLocked(key)
	c.draft = value
	c.hasDraft = true
}

// QueueCommit (re)starts the debounce timer of a cell.
func (s *Session) QueueCommit(key CellKey) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	c := s.cellLocked(key)
	s.stopTimerLocked(c)
	c.timerSeq++
	seq := c.timerSeq
	c.timer = s.sched.AfterFunc(s.debounce, func() { s.fire(key, seq) })
	changed := s.setStateLocked(c, Queued, nil)
	s.mu.Unlock()
	s.notify(key, Queued, changed)
}

// FlushCommit cancels the debounce timer of a cell and commits it now. Call
// it when the cell loses focus or stops being rendered.
func (s *Session) FlushCommit(key CellKey) {
	s.mu.Lock()
	if c := s.cells[key]; c != nil {
		s.stopTimerLocked(c)
	}
	s.mu.Unlock()
	s.Commit(key)
}

// Commit sends the draft of a cell. Cells that were never edited are not
// written. The request runs in the background; a response only updates the
// state if no later commit was issued for the same cell.
func (s *Session) Commit(key CellKey) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	c := s.cells[key]
	if c == nil || !c.hasDraft {
		changed := false
		if c != nil && c.state == Queued {
			changed = s.setStateLocked(c, Idle, nil)
		}
		s.mu.Unlock()
		s.notify(key, Idle, changed)
		return
	}
	c.gen++
	gen := c.gen
	value := c.draft
	changed := s.setStateLocked(c, Saving, nil)
	s.wg.Add(1)
	s.mu.Unlock()
	s.notify(key, Saving, changed)

	// Close does not abort commits already started.
	go func() {
		defer s.wg.Done()
		err := s.up.UpdateCell(context.Background(), key.RowID, key.ColumnID, value)
		s.finish(key, gen, err)
	}()
}

// Status aggregates all cells: error if any failed, else saving if any is
// queued or saving, else saved.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatusSaved
	for _, c := range s.cells {
		switch c.state {
		case Error:
			return StatusError
		case Queued, Saving:
			out = StatusSaving
		}
	}
	return out
}

// State returns the save state of a cell and the error of its last commit.
func (s *Session) State(key CellKey) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cells[key]; c != nil {
		return c.state, c.err
	}
	return Idle, nil
}

// Draft returns the draft text of a cell, if one was ever set.
func (s *Session) Draft(key CellKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.cells[key]; c != nil && c.hasDraft {
		return c.draft, true
	}
	return "", false
}

// DisplayValue returns what to render for a cell: its draft when one exists,
// serverValue otherwise. Drafts outlive successful saves.
func (s *Session) DisplayValue(key CellKey, serverValue any) any {
	if d, ok := s.Draft(key); ok {
		return d
	}
	return serverValue
}

// Wait blocks until every commit in flight has completed.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels pending timers. Commits already in flight are not
// interrupted; call Wait to block until they are done. Their results no
// longer update cell states, and the session ignores every call afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	n := 0
	for _, c := range s.cells {
		if c.timer != nil {
			n++
		}
		s.stopTimerLocked(c)
	}
	s.mu.Unlock()
	if n > 0 {
		slog.Debug("editsession: dropped pending commits", "count", n)
	}
}

func (s *Session) fire(key CellKey, seq uint64) {
	s.mu.Lock()
	c := s.cells[key]
	if s.closed || c == nil || c.timerSeq != seq || c.timer == nil {
		s.mu.Unlock()
		return
	}
	c.timer = nil
	s.mu.Unlock()
	s.Commit(key)
}

func (s *Session) finish(key CellKey, gen uint64, err error) {
	s.mu.Lock()
	c := s.cells[key]
	if s.closed || c == nil || c.gen != gen {
		s.mu.Unlock()
		return
	}
	st := Saved
	if err != nil {
		st = Error
		slog.Warn("editsession: commit failed", "row", key.RowID, "column", key.ColumnID, "err", err)
	}
	changed := s.setStateLocked(c, st, err)
	s.mu.Unlock()
	s.notify(key, st, changed)
}

func (s *Session) cellLocked(key CellKey) *cell {
	c := s.cells[key]
	if c == nil {
		c = &cell{}
		s.cells[key] = c
	}
	return c
}

func (s *Session) stopTimerLocked(c *cell) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (s *Session) setStateLocked(c *cell, st State, err error) bool {
	changed := c.state != st
	c.state = st
	c.err = err
	return changed
}

func (s *Session) notify(key CellKey, st State, changed bool) {
	if changed && s.onChange != nil {
		s.onChange(key, st)
	}
}

// ABOUTME: In-memory tracker state with serialized background persistence.
// ABOUTME: Every successful mutation bumps the version and queues a state snapshot.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/storage"
)

// UpsertResult describes what UpsertRow did.
type UpsertResult int

const (
	RowUnchanged UpsertResult = iota
	RowCreated
	RowUpdated
	RowDeleted
)

func (r UpsertResult) String() string {
	switch r {
	case RowCreated:
		return "created"
	case RowUpdated:
		return "updated"
	case RowDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Tracker owns the authoritative table list. Mutations apply to memory
// immediately; the resulting state is written by a single background
// writer, so writes land in the order the mutations happened. A failed
// write is logged and reported but never rolls memory back.
type Tracker struct {
	mu      sync.RWMutex
	tables  []models.Table
	version uint64

	store storage.Store
	log   *log.Logger

	// writer state
	wmu       sync.Mutex
	pending   *models.AppState
	lastErr   error
	onError   func(error)
	closed    bool
	wake      chan struct{}
	flushReq  chan chan error
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a tracker over store and starts its writer. Call Load to read
// the stored state and Close to drain pending writes.
func New(store storage.Store, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Default()
	}
	t := &Tracker{
		tables:   []models.Table{},
		store:    store,
		log:      logger,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan error),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// OnPersistError registers fn to be called after every failed write.
func (t *Tracker) OnPersistError(fn func(error)) {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	t.onError = fn
}

// Load replaces the in-memory tables with the stored state. firstRun is true
// when the store holds no state yet. Loading does not queue a write.
func (t *Tracker) Load(ctx context.Context) (firstRun bool, err error) {
	st, err := t.store.LoadState(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return false, fmt.Errorf("load state: %w", err)
		}
		firstRun = true
	}

	tables := models.TablesFromState(st)

	t.mu.Lock()
	t.tables = tables
	t.version++
	t.mu.Unlock()

	t.log.Debug("state loaded", "tables", len(tables), "first_run", firstRun)
	return firstRun, nil
}

// AddTable appends a table holding only the Date column. A blank title is
// rejected.
func (t *Tracker) AddTable(title string) (int, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return -1, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tables = append(t.tables, models.NewTable(title))
	t.commit()
	return len(t.tables) - 1, true
}

// RenameTable changes the title of table i. A blank title is rejected.
func (t *Tracker) RenameTable(i int, title string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(i) {
		return false
	}
	t.tables[i].Title = title
	t.commit()
	return true
}

// DeleteTable removes table i. Tables after it shift down by one.
func (t *Tracker) DeleteTable(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(i) {
		return false
	}
	t.tables = append(t.tables[:i], t.tables[i+1:]...)
	t.commit()
	return true
}

// AddColumn appends a column to table i and back-fills every row with "".
// Blank and duplicate names are rejected.
func (t *Tracker) AddColumn(i int, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(i) || t.tables[i].HasColumn(name) {
		return false
	}
	tbl := &t.tables[i]
	tbl.Columns = append(tbl.Columns, name)
	for _, r := range tbl.Rows {
		r[name] = ""
	}
	t.commit()
	return true
}

// RemoveColumn drops a column from table i. Rows left without any value are
// deleted. Date cannot be removed.
func (t *Tracker) RemoveColumn(i int, name string) bool {
	if name == models.DateColumn {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(i) || !t.tables[i].HasColumn(name) {
		return false
	}

	tbl := &t.tables[i]
	cols := make([]string, 0, len(tbl.Columns)-1)
	for _, c := range tbl.Columns {
		if c != name {
			cols = append(cols, c)
		}
	}
	tbl.Columns = cols

	rows := make([]models.Row, 0, len(tbl.Rows))
	for _, r := range tbl.Rows {
		delete(r, name)
		if len(cols) == 1 || r.IsBlank(cols) {
			continue
		}
		rows = append(rows, r)
	}
	tbl.Rows = rows

	t.commit()
	return true
}

// UpsertRow writes the row for date in table i. Columns missing from values
// are stored as "". A row whose values are all empty is deleted instead.
func (t *Tracker) UpsertRow(i int, date string, values map[string]string) UpsertResult {
	date = strings.TrimSpace(date)
	if date == "" {
		return RowUnchanged
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.valid(i) {
		return RowUnchanged
	}

	tbl := &t.tables[i]
	row := models.Row{models.DateColumn: date}
	for _, c := range tbl.DataColumns() {
		row[c] = values[c]
	}

	idx := tbl.RowIndex(date)
	if row.IsBlank(tbl.Columns) {
		if idx < 0 {
			return RowUnchanged
		}
		tbl.Rows = append(tbl.Rows[:idx], tbl.Rows[idx+1:]...)
		t.commit()
		return RowDeleted
	}

	if idx >= 0 {
		tbl.Rows[idx] = row
		t.commit()
		return RowUpdated
	}
	tbl.Rows = append(tbl.Rows, row)
	t.commit()
	return RowCreated
}

// Len returns the number of tables.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tables)
}

// Table returns a copy of table i.
func (t *Tracker) Table(i int) (models.Table, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.valid(i) {
		return models.Table{}, false
	}
	return t.tables[i].Clone(), true
}

// Tables returns a copy of every table.
func (t *Tracker) Tables() []models.Table {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Table, len(t.tables))
	for i, tbl := range t.tables {
		out[i] = tbl.Clone()
	}
	return out
}

// IndexOf returns the index of the first table titled title, or -1.
func (t *Tracker) IndexOf(title string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, tbl := range t.tables {
		if tbl.Title == title {
			return i
		}
	}
	return -1
}

// Resolve finds a table by exact title or, failing that, by 1-based number.
func (t *Tracker) Resolve(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if i := t.IndexOf(ref); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= t.Len() {
		return n - 1, nil
	}
	return -1, fmt.Errorf("%w: %q", ErrTableNotFound, ref)
}

// State returns the persisted form of the current tables.
func (t *Tracker) State() *models.AppState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return models.StateFromTables(t.tables)
}

// Version increases with every mutation and every Load.
func (t *Tracker) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

func (t *Tracker) valid(i int) bool {
	return i >= 0 && i < len(t.tables)
}

// commit bumps the version and queues a snapshot. Callers hold t.mu, which
// keeps snapshots queued in mutation order.
func (t *Tracker) commit() {
	t.version++
	snap := models.StateFromTables(t.tables)

	t.wmu.Lock()
	if t.closed {
		t.wmu.Unlock()
		t.log.Warn("tracker closed, change not persisted", "version", t.version)
		return
	}
	t.pending = snap
	t.wmu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every queued snapshot has been written and returns the
// error of the most recent write, if it failed.
func (t *Tracker) Flush(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case t.flushReq <- reply:
	case <-t.done:
		return t.lastError()
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any queued snapshot and stops the writer. It returns the
// error of the most recent write. Closing twice is a no-op.
func (t *Tracker) Close() error {
	t.closeOnce.Do(func() {
		t.wmu.Lock()
		t.closed = true
		t.wmu.Unlock()
		close(t.quit)
		<-t.done
	})
	return t.lastError()
}

func (t *Tracker) lastError() error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.lastErr
}

func (t *Tracker) writeLoop() {
	defer close(t.done)
	for {
		select {
		case <-t.wake:
			t.writePending()
		case reply := <-t.flushReq:
			t.writePending()
			reply <- t.lastError()
		case <-t.quit:
			t.writePending()
			return
		}
	}
}

// writePending saves the newest queued snapshot. Older snapshots it replaced
// were never written.
func (t *Tracker) writePending() {
	t.wmu.Lock()
	snap := t.pending
	t.pending = nil
	t.wmu.Unlock()
	if snap == nil {
		return
	}

	err := t.store.SaveState(context.Background(), snap)

	t.wmu.Lock()
	t.lastErr = err
	onError := t.onError
	t.wmu.Unlock()

	if err != nil {
		t.log.Error("failed to save state", "tables", len(snap.Titles), "err", err)
		if onError != nil {
			onError(err)
		}
		return
	}
	t.log.Debug("state saved", "tables", len(snap.Titles))
}

// ABOUTME: Test helpers for the tracker package.
// ABOUTME: Provides an in-memory Store that can fail or block writes on demand.
package tracker

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/storage"
)

var errDiskFull = errors.New("disk full")

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	state   *models.AppState
	saves   []*models.AppState
	exports map[string]*models.MonthlyExport
	failing bool
	gate    chan struct{} // when non-nil, SaveState waits for a receive
}

var _ storage.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{exports: map[string]*models.MonthlyExport{}}
}

func (m *memStore) SaveState(_ context.Context, st *models.AppState) error {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errDiskFull
	}
	m.state = st
	m.saves = append(m.saves, st)
	return nil
}

func (m *memStore) LoadState(_ context.Context) (*models.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, storage.ErrNotFound
	}
	return m.state, nil
}

func (m *memStore) SaveExport(_ context.Context, rec *models.MonthlyExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[rec.Key()] = rec
	return nil
}

func (m *memStore) GetExport(_ context.Context, month, title, column string) (*models.MonthlyExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.exports[models.ExportKey(month, title, column)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return rec, nil
}

func (m *memStore) ListExports(_ context.Context) ([]*models.MonthlyExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.MonthlyExport, 0, len(m.exports))
	for _, rec := range m.exports {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (m *memStore) SchemaVersion() int { return storage.SchemaVersion }

func (m *memStore) Reset(_ context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

func (m *memStore) setFailing(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = v
}

func (m *memStore) saved() []*models.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AppState(nil), m.saves...)
}

func (m *memStore) current() *models.AppState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// setupTracker returns a loaded tracker over an in-memory store.
func setupTracker(t *testing.T) (*Tracker, *memStore) {
	t.Helper()
	store := newMemStore()
	tr := New(store, quietLogger())
	t.Cleanup(func() { _ = tr.Close() })
	if _, err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return tr, store
}

// setupBadgerTracker returns a tracker over a real badger store in a temp dir.
func setupBadgerTracker(t *testing.T) (*Tracker, storage.Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "kv")
	store, err := storage.OpenBadger(dir, quietLogger())
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	tr := New(store, quietLogger())
	t.Cleanup(func() {
		_ = tr.Close()
		_ = store.Close()
	})
	if _, err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return tr, store, dir
}

func flush(t *testing.T, tr *Tracker) {
	t.Helper()
	if err := tr.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

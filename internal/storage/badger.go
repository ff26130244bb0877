// ABOUTME: Badger-backed Store using key prefixes as partitions.
// ABOUTME: Keeps the schema version and partition markers under meta: keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/calyra/internal/models"
)

const (
	statePrefix         = PartitionState + ":"
	exportsPrefix       = PartitionExports + ":"
	metaVersionKey      = "meta:version"
	metaPartitionPrefix = "meta:partition:"
)

// BadgerStore is a Store over an embedded Badger database directory.
type BadgerStore struct {
	db      *badger.DB
	dir     string
	version int
	log     *log.Logger

	mu     sync.RWMutex
	closed bool
}

// Compile-time check that BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)

// OpenBadger opens or creates the database in dir and upgrades it to
// SchemaVersion.
func OpenBadger(dir string, logger *log.Logger) (*BadgerStore, error) {
	s, err := openBadgerDir(dir, logger)
	if err != nil {
		return nil, err
	}
	if err := s.upgrade(); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

// RemoveBadger deletes the database in dir whatever schema version it was
// written with. It fails with ErrLocked while another process has it open.
func RemoveBadger(ctx context.Context, dir string, logger *log.Logger) error {
	s, err := openBadgerDir(dir, logger)
	if err != nil {
		return err
	}
	if err := s.Reset(ctx); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func openBadgerDir(dir string, logger *log.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogger{logger.WithPrefix("badger")}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, dir: dir, log: logger}, nil
}

// upgrade creates missing partition markers and bumps the stored version.
// Existing keys are never touched.
func (s *BadgerStore) upgrade() error {
	return s.db.Update(func(txn *badger.Txn) error {
		current, err := readVersion(txn)
		if err != nil {
			return err
		}
		if current > SchemaVersion {
			return fmt.Errorf("%w: found v%d, supported v%d", ErrVersionTooNew, current, SchemaVersion)
		}

		for _, p := range partitionHistory {
			key := []byte(metaPartitionPrefix + p.Name)
			_, err := txn.Get(key)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check partition %s: %w", p.Name, err)
			}
			if err := txn.Set(key, []byte(strconv.Itoa(p.Version))); err != nil {
				return fmt.Errorf("create partition %s: %w", p.Name, err)
			}
		}

		if current < SchemaVersion {
			if err := txn.Set([]byte(metaVersionKey), []byte(strconv.Itoa(SchemaVersion))); err != nil {
				return fmt.Errorf("write schema version: %w", err)
			}
			if current > 0 {
				s.log.Info("upgraded database schema", "from", current, "to", SchemaVersion)
			}
		}
		s.version = SchemaVersion
		return nil
	})
}

func readVersion(txn *badger.Txn) (int, error) {
	item, err := txn.Get([]byte(metaVersionKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	v, err := strconv.Atoi(string(val))
	if err != nil {
		return 0, fmt.Errorf("parse schema version %q: %w", val, err)
	}
	return v, nil
}

// SchemaVersion returns the version the database was opened at.
func (s *BadgerStore) SchemaVersion() int {
	return s.version
}

// Dir returns the database directory.
func (s *BadgerStore) Dir() string {
	return s.dir
}

// SaveState replaces the application state record.
func (s *BadgerStore) SaveState(ctx context.Context, st *models.AppState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.set(ctx, statePrefix+StateKey, data); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState reads the application state record. ErrNotFound means first run.
func (s *BadgerStore) LoadState(ctx context.Context) (*models.AppState, error) {
	data, err := s.get(ctx, statePrefix+StateKey)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	var st models.AppState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

// SaveExport writes rec under its composite key, overwriting any earlier record.
func (s *BadgerStore) SaveExport(ctx context.Context, rec *models.MonthlyExport) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	if err := s.set(ctx, exportsPrefix+rec.Key(), data); err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	return nil
}

// GetExport reads the export record for month, table and column.
func (s *BadgerStore) GetExport(ctx context.Context, month, tableTitle, columnName string) (*models.MonthlyExport, error) {
	data, err := s.get(ctx, exportsPrefix+models.ExportKey(month, tableTitle, columnName))
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	var rec models.MonthlyExport
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal export: %w", err)
	}
	return &rec, nil
}

// ListExports returns every export record ordered by key.
func (s *BadgerStore) ListExports(ctx context.Context) ([]*models.MonthlyExport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []*models.MonthlyExport
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(exportsPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec models.MonthlyExport
			if err := json.Unmarshal(val, &rec); err != nil {
				s.log.Warn("skipping unreadable export record", "key", string(it.Item().Key()), "err", err)
				continue
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return out, nil
}

// Reset deletes every key and removes the database directory. The store is
// closed afterwards.
func (s *BadgerStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.db.DropAll(); err != nil {
		s.log.Warn("database deletion blocked, close other calyra processes and try again", "err", err)
		return fmt.Errorf("%w: %v", ErrResetBlocked, err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.closed = true

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove database directory: %w", err)
	}
	s.log.Info("database deleted", "path", s.dir)
	return nil
}

// Close closes the database. Closing twice is a no-op.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// set stores a value with the given key in one read-write transaction.
func (s *BadgerStore) set(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get returns a copy of the value stored under key.
func (s *BadgerStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// badgerLogger routes Badger's internal logging through the application logger.
type badgerLogger struct {
	l *log.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Errorf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warnf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Infof(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debugf(strings.TrimSpace(format), args...)
}

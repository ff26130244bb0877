// ABOUTME: SQLite-backed Store with one table per partition.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/calyra/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store over a single SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	version int
	log     *log.Logger

	mu     sync.RWMutex
	closed bool
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates a SQLite database at dbPath and migrates it to
// SchemaVersion.
func OpenSQLite(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	s, err := openSQLiteFile(dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// RemoveSQLite deletes the database at dbPath whatever schema version it was
// written with. It fails with ErrResetBlocked while another connection holds
// a lock on it.
func RemoveSQLite(ctx context.Context, dbPath string, logger *log.Logger) error {
	s, err := openSQLiteFile(dbPath, logger)
	if err != nil {
		return err
	}
	if err := s.Reset(ctx); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func openSQLiteFile(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Default()
	}

	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: requests queue against it in order.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Set file permissions
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}
	return &SQLiteStore{db: db, dbPath: dbPath, log: logger}, nil
}

// sqliteDSN applies the pragmas on every connection the pool opens.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range []string{
		"journal_mode(WAL)",
		"busy_timeout(5000)",
		"synchronous(NORMAL)",
	} {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// SchemaVersion returns the version the database was opened at.
func (s *SQLiteStore) SchemaVersion() int {
	return s.version
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// SaveState replaces the application state record in one transaction.
func (s *SQLiteStore) SaveState(ctx context.Context, st *models.AppState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, StateKey, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState reads the application state record. ErrNotFound means first run.
func (s *SQLiteStore) LoadState(ctx context.Context) (*models.AppState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, StateKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load state: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var st models.AppState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

// SaveExport writes rec under its composite key, overwriting any earlier record.
func (s *SQLiteStore) SaveExport(ctx context.Context, rec *models.MonthlyExport) error {
	chart, err := json.Marshal(rec.ChartData)
	if err != nil {
		return fmt.Errorf("marshal chart data: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exports (key, month, table_title, column_name, chart_data, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			month = excluded.month,
			table_title = excluded.table_title,
			column_name = excluded.column_name,
			chart_data = excluded.chart_data,
			generated_at = excluded.generated_at
	`, rec.Key(), rec.Month, rec.TableTitle, rec.ColumnName, string(chart), rec.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save export: %w", err)
	}
	return nil
}

// GetExport reads the export record for month, table and column.
func (s *SQLiteStore) GetExport(ctx context.Context, month, tableTitle, columnName string) (*models.MonthlyExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT month, table_title, column_name, chart_data, generated_at
		FROM exports WHERE key = ?
	`, models.ExportKey(month, tableTitle, columnName))

	rec, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get export: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	return rec, nil
}

// ListExports returns every export record ordered by key.
func (s *SQLiteStore) ListExports(ctx context.Context) ([]*models.MonthlyExport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, table_title, column_name, chart_data, generated_at
		FROM exports ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []*models.MonthlyExport
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("list exports: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExport(r rowScanner) (*models.MonthlyExport, error) {
	var rec models.MonthlyExport
	var chart string
	if err := r.Scan(&rec.Month, &rec.TableTitle, &rec.ColumnName, &chart, &rec.GeneratedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(chart), &rec.ChartData); err != nil {
		return nil, fmt.Errorf("unmarshal chart data: %w", err)
	}
	return &rec, nil
}

// Reset deletes the database file and its WAL side files. It first takes an
// exclusive lock; if another connection holds a write lock the deletion is
// reported as blocked and nothing is removed. The store is closed afterwards.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE"); err != nil {
		_ = conn.Close()
		s.log.Warn("database deletion blocked, close other calyra processes and try again", "path", s.dbPath, "err", err)
		return fmt.Errorf("%w: %v", ErrResetBlocked, err)
	}
	_, _ = conn.ExecContext(ctx, "ROLLBACK")
	_ = conn.Close()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	s.closed = true

	for _, p := range []string{s.dbPath, s.dbPath + "-wal", s.dbPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	s.log.Info("database deleted", "path", s.dbPath)
	return nil
}

// Close closes the database connection. Closing twice is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

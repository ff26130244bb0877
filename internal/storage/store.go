// ABOUTME: Store interface for tracker persistence with state and exports partitions.
// ABOUTME: Defines the schema version, partition history, and sentinel errors.
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/harperreed/calyra/internal/models"
)

// SchemaVersion is the partition layout this build reads and writes.
// Version 1 held only the state partition; version 2 added exports.
const SchemaVersion = 2

// DBName is the fixed name of the tracker database.
const DBName = "calyra"

// StateKey is the single key the whole application state is stored under.
const StateKey = "appState"

// Partition names.
const (
	PartitionState   = "state"
	PartitionExports = "exports"
)

// partitionHistory lists every partition with the schema version that
// introduced it. Upgrades only ever add entries from this list.
var partitionHistory = []struct {
	Version int
	Name    string
}{
	{1, PartitionState},
	{2, PartitionExports},
}

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionTooNew is returned when the database was written by a newer schema.
	ErrVersionTooNew = errors.New("database schema is newer than this build supports")
	// ErrLocked is returned when another process holds the database.
	ErrLocked = errors.New("database is locked by another process")
	// ErrResetBlocked is returned when another connection prevents deletion.
	ErrResetBlocked = errors.New("database deletion blocked by another open connection")
	// ErrClosed is returned for operations on a closed or reset store.
	ErrClosed = errors.New("store is closed")
)

// Store persists the application state and monthly export records.
// Implementations must be safe for concurrent use.
type Store interface {
	// State partition
	SaveState(ctx context.Context, st *models.AppState) error
	LoadState(ctx context.Context) (*models.AppState, error)

	// Exports partition
	SaveExport(ctx context.Context, rec *models.MonthlyExport) error
	GetExport(ctx context.Context, month, tableTitle, columnName string) (*models.MonthlyExport, error)
	ListExports(ctx context.Context) ([]*models.MonthlyExport, error)

	// Lifecycle
	SchemaVersion() int
	Reset(ctx context.Context) error
	Close() error
}

// DataDir returns the default data directory following XDG spec.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, DBName)
}

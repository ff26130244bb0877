// ABOUTME: Data migration between tracker storage backends.
// ABOUTME: Copies the state record and every export record from source to destination.

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/harperreed/calyra/internal/models"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Tables  int
	Rows    int
	Exports int
}

// MigrateData copies all data from src to dst storage. The destination's
// state record is replaced; it should be empty before calling this function.
func MigrateData(ctx context.Context, src, dst Store) (*MigrateSummary, error) {
	summary := &MigrateSummary{}

	st, err := src.LoadState(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		// nothing to copy
	case err != nil:
		return nil, fmt.Errorf("load source state: %w", err)
	default:
		if err := dst.SaveState(ctx, st); err != nil {
			return nil, fmt.Errorf("save state: %w", err)
		}
		for _, t := range models.TablesFromState(st) {
			summary.Tables++
			summary.Rows += len(t.Rows)
		}
	}

	exports, err := src.ListExports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source exports: %w", err)
	}
	for _, rec := range exports {
		if err := dst.SaveExport(ctx, rec); err != nil {
			return nil, fmt.Errorf("save export %s: %w", rec.Key(), err)
		}
		summary.Exports++
	}

	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}

// ABOUTME: SQLite schema migrations tracked with PRAGMA user_version.
// ABOUTME: Each migration only adds tables, so upgrades keep existing data.
package storage

import (
	"context"
	"fmt"
)

// sqliteMigrations maps each partition in partitionHistory to its DDL.
var sqliteMigrations = map[string]string{
	PartitionState: `
	CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,

	PartitionExports: `
	CREATE TABLE IF NOT EXISTS exports (
		key TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		table_title TEXT NOT NULL,
		column_name TEXT NOT NULL,
		chart_data TEXT NOT NULL,
		generated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exports_month ON exports(month);`,
}

// migrate applies every migration newer than the stored user_version.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: found v%d, supported v%d", ErrVersionTooNew, current, SchemaVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// CREATE ... IF NOT EXISTS makes re-running an applied step harmless, so
	// every partition is ensured even when user_version claims it exists.
	for _, p := range partitionHistory {
		if _, err := tx.ExecContext(ctx, sqliteMigrations[p.Name]); err != nil {
			return fmt.Errorf("create partition %s: %w", p.Name, err)
		}
	}

	if current < SchemaVersion {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if current > 0 && current < SchemaVersion {
		s.log.Info("upgraded database schema", "from", current, "to", SchemaVersion)
	}
	s.version = SchemaVersion
	return nil
}

// ABOUTME: CLI command for migrating data between storage backends.
// ABOUTME: Copies tables and export history from one backend to the other.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/config"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/spf13/cobra"
)

var (
	migrateFrom  string
	migrateTo    string
	migrateForce bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data between Badger and SQLite",
	Long: `Copy every table and the export history from one storage backend to the
other, inside the same data directory.

IMPORTANT:

  - The destination must be empty unless --force is given
  - With --force, the destination's tables are replaced
  - The source is left untouched

USAGE:

  calyra migrate --from badger --to sqlite
  calyra migrate --from sqlite --to badger --force

AFTER MIGRATION:

  Point calyra at the new backend in ~/.config/calyra/config.yaml:
    backend: sqlite`,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from := strings.ToLower(migrateFrom)
		to := strings.ToLower(migrateTo)
		if from == to {
			return fmt.Errorf("source and destination are both %s", from)
		}

		dataDir := cfg.GetDataDir()
		src, err := config.OpenBackend(from, dataDir, logger)
		if err != nil {
			return fmt.Errorf("failed to open source: %w", err)
		}
		defer src.Close()

		dst, err := config.OpenBackend(to, dataDir, logger)
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer dst.Close()

		if !migrateForce {
			_, err := dst.LoadState(cmd.Context())
			switch {
			case err == nil:
				return fmt.Errorf("destination %s already has data (use --force to replace it)", to)
			case !errors.Is(err, storage.ErrNotFound):
				return fmt.Errorf("failed to check destination: %w", err)
			}
		}

		summary, err := storage.MigrateData(cmd.Context(), src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Migrated %s to %s", from, to)
		fmt.Printf("  %d tables, %d rows, %d exports\n", summary.Tables, summary.Rows, summary.Exports)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", config.BackendBadger, "source backend: badger or sqlite")
	migrateCmd.Flags().StringVar(&migrateTo, "to", config.BackendSQLite, "destination backend: badger or sqlite")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "replace data already in the destination")
	rootCmd.AddCommand(migrateCmd)
}

// ABOUTME: Hidden CLI command that deletes the whole database.
// ABOUTME: Escape hatch for a store that can no longer be opened by this build.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:    "reset",
	Short:  "Delete every table and the export history",
	Hidden: true,
	Long: `Delete the calyra database of the configured backend.

CAUTION:

  This permanently deletes every table, row and export record. There is no
  undo. Take a backup first with 'calyra export json -o backup.json'.

  Close other calyra processes first; deletion is refused while another
  process has the database open.`,
	Annotations: map[string]string{skipStoreAnnotation: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to delete %s without --yes", cfg.StoragePath())
		}

		// The schema version is not checked, so a store written by a newer
		// build can still be deleted.
		if err := cfg.RemoveStorage(cmd.Context(), logger); err != nil {
			if errors.Is(err, storage.ErrResetBlocked) || errors.Is(err, storage.ErrLocked) {
				return fmt.Errorf("%w: close other calyra processes and try again", err)
			}
			return fmt.Errorf("reset failed: %w", err)
		}

		logger.Warn("database deleted", "path", cfg.StoragePath())
		color.Yellow("✗ Deleted %s", cfg.StoragePath())
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion")
	rootCmd.AddCommand(resetCmd)
}

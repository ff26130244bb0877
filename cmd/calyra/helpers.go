// ABOUTME: Shared helpers for calyra CLI commands.
// ABOUTME: Table lookup, value assignment parsing, persistence and text padding.
package main

import (
	"fmt"
	"strings"

	"github.com/harperreed/calyra/internal/models"
	"github.com/spf13/cobra"
)

// lookupTable resolves a table title or 1-based number.
func lookupTable(ref string) (int, models.Table, error) {
	i, err := tr.Resolve(ref)
	if err != nil {
		return -1, models.Table{}, err
	}
	tbl, _ := tr.Table(i)
	return i, tbl, nil
}

// persist waits for queued writes so a failed save is reported by the
// command that caused it.
func persist(cmd *cobra.Command) error {
	if err := tr.Flush(cmd.Context()); err != nil {
		return fmt.Errorf("failed to save changes: %w", err)
	}
	return nil
}

// parseAssignments turns Column=value arguments into a map. The value may be
// empty; the column may not.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		col, val, ok := strings.Cut(arg, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid value %q (use Column=value)", arg)
		}
		out[col] = val
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

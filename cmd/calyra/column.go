// ABOUTME: CLI commands for adding and removing table columns.
// ABOUTME: Removing a column deletes rows that are left without any value.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/models"
	"github.com/spf13/cobra"
)

var columnCmd = &cobra.Command{
	Use:     "column",
	Aliases: []string{"col", "c"},
	Short:   "Manage table columns",
	Long: `Add or remove columns of a table.

Column names are case-sensitive and must be unique within a table. The Date
column is always present and cannot be removed.

EXAMPLES:

  calyra column add Workouts Reps       # Add a Reps column
  calyra column remove Workouts Reps    # Remove it again`,
}

var columnAddCmd = &cobra.Command{
	Use:     "add <table> <name>",
	Aliases: []string{"a"},
	Short:   "Add a column",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, tbl, err := lookupTable(args[0])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if !tr.AddColumn(i, name) {
			if name == "" {
				return fmt.Errorf("column name is required")
			}
			return fmt.Errorf("column %q already exists in %s", name, tbl.Title)
		}
		if err := persist(cmd); err != nil {
			return err
		}

		color.Green("✓ Added column %s to %s", name, tbl.Title)
		return nil
	},
}

var columnRemoveCmd = &cobra.Command{
	Use:     "remove <table> <name>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a column",
	Long: `Remove a column from a table.

Rows that have no value left in any other column are deleted. Removing the
last column deletes every row of the table.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, tbl, err := lookupTable(args[0])
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		if name == models.DateColumn {
			return fmt.Errorf("the Date column cannot be removed")
		}
		if !tr.RemoveColumn(i, name) {
			return fmt.Errorf("column %q not found in %s", name, tbl.Title)
		}
		if err := persist(cmd); err != nil {
			return err
		}

		after, _ := tr.Table(i)
		color.Yellow("✗ Removed column %s from %s", name, tbl.Title)
		if dropped := len(tbl.Rows) - len(after.Rows); dropped > 0 {
			fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("%d empty rows deleted", dropped))
		}
		return nil
	},
}

func init() {
	columnCmd.AddCommand(columnAddCmd)
	columnCmd.AddCommand(columnRemoveCmd)
	rootCmd.AddCommand(columnCmd)
}

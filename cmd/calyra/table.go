// ABOUTME: CLI commands for managing tables.
// ABOUTME: Supports add, list, show, rename, and delete.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/models"
	"github.com/spf13/cobra"
)

const cellWidth = 14

var tableCmd = &cobra.Command{
	Use:     "table",
	Aliases: []string{"t"},
	Short:   "Manage tables",
	Long: `Manage tracker tables.

Every table starts with a Date column. Add your own columns with
'calyra column add'. Tables are numbered in the order they were created;
deleting a table renumbers the ones after it.

EXAMPLES:

  calyra table add Workouts        # Create a table
  calyra table list                # List tables with their numbers
  calyra table show Workouts       # Show rows, oldest first
  calyra table rename 1 Gym        # Rename table 1
  calyra table delete Gym          # Delete a table and its rows`,
}

var tableAddCmd = &cobra.Command{
	Use:     "add <title>",
	Aliases: []string{"a", "new"},
	Short:   "Create a table",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		i, ok := tr.AddTable(title)
		if !ok {
			return fmt.Errorf("table title is required")
		}
		if err := persist(cmd); err != nil {
			return err
		}

		color.Green("✓ Created table %s", strings.TrimSpace(title))
		fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("#%d", i+1))
		return nil
	},
}

var tableListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List tables",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := tr.Tables()
		if len(tables) == 0 {
			fmt.Println("No tables yet. Create one with 'calyra table add <title>'.")
			return nil
		}

		faint := color.New(color.Faint)
		for i, tbl := range tables {
			fmt.Printf("%s %s %s %s\n",
				faint.Sprintf("%3d", i+1),
				padRight(truncate(tbl.Title, 24), 24),
				faint.Sprintf("%4d rows", len(tbl.Rows)),
				strings.Join(tbl.DataColumns(), ", "))
		}
		return nil
	},
}

var tableShowCmd = &cobra.Command{
	Use:     "show <table>",
	Aliases: []string{"s", "get"},
	Short:   "Show a table's rows",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, tbl, err := lookupTable(args[0])
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		bold.Printf("%s ", tbl.Title)
		faint.Printf("#%d\n", i+1)

		if len(tbl.DataColumns()) == 0 {
			fmt.Println("No columns yet. Add one with 'calyra column add'.")
			return nil
		}
		if len(tbl.Rows) == 0 {
			fmt.Println("No rows yet.")
			return nil
		}

		printRow(bold, tbl.Columns, nil, true)
		for _, r := range tbl.SortedRows() {
			printRow(nil, tbl.Columns, r, false)
		}
		return nil
	},
}

func printRow(c *color.Color, columns []string, r models.Row, header bool) {
	cells := make([]string, len(columns))
	for i, col := range columns {
		v := col
		if !header {
			v = r[col]
		}
		cells[i] = padRight(truncate(v, cellWidth), cellWidth)
	}
	line := strings.TrimRight(strings.Join(cells, " "), " ")
	if c != nil {
		c.Println(line)
		return
	}
	fmt.Println(line)
}

var tableRenameCmd = &cobra.Command{
	Use:   "rename <table> <title>",
	Short: "Rename a table",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, tbl, err := lookupTable(args[0])
		if err != nil {
			return err
		}
		title := strings.Join(args[1:], " ")
		if !tr.RenameTable(i, title) {
			return fmt.Errorf("table title is required")
		}
		if err := persist(cmd); err != nil {
			return err
		}

		color.Green("✓ Renamed %s to %s", tbl.Title, strings.TrimSpace(title))
		return nil
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:     "delete <table>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a table",
	Long: `Delete a table and all of its rows.

CAUTION:

  This permanently deletes the table. There is no undo.
  Tables after it are renumbered.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, tbl, err := lookupTable(args[0])
		if err != nil {
			return err
		}
		if !tr.DeleteTable(i) {
			return fmt.Errorf("table not found: %s", args[0])
		}
		if err := persist(cmd); err != nil {
			return err
		}

		color.Yellow("✗ Deleted %s", tbl.Title)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("%d rows", len(tbl.Rows)))
		return nil
	},
}

func init() {
	tableCmd.AddCommand(tableAddCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableShowCmd)
	tableCmd.AddCommand(tableRenameCmd)
	tableCmd.AddCommand(tableDeleteCmd)
	rootCmd.AddCommand(tableCmd)
}

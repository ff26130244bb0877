// ABOUTME: CLI commands for setting and clearing the row of a date.
// ABOUTME: Values are given as Column=value; columns left out keep their value.
package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/spf13/cobra"
)

var rowCmd = &cobra.Command{
	Use:     "row",
	Aliases: []string{"r"},
	Short:   "Set or clear rows",
	Long: `Set or clear the row of a date.

A table holds at most one row per date. Dates are YYYY-MM-DD, or today and
yesterday. A row whose values are all empty is deleted.

EXAMPLES:

  calyra row set Workouts today Reps=10/10 Notes="felt strong"
  calyra row set 1 2024-06-01 Reps=8
  calyra row set Workouts 2024-06-01 Notes=      # Clear one value
  calyra row clear Workouts 2024-06-01           # Delete the row`,
}

var rowSetCmd = &cobra.Command{
	Use:     "set <table> <date> <Column=value>...",
	Aliases: []string{"add", "s"},
	Short:   "Set values of a row",
	Args:    cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		return writeRow(cmd, args[0], args[1], values, false)
	},
}

var rowClearCmd = &cobra.Command{
	Use:     "clear <table> <date>",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete the row of a date",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeRow(cmd, args[0], args[1], nil, true)
	},
}

// writeRow edits the row for date through a session, the same path
// interactive edits take.
func writeRow(cmd *cobra.Command, ref, date string, values map[string]string, clearRow bool) error {
	date, err := models.ParseDate(date, time.Now())
	if err != nil {
		return err
	}
	i, tbl, err := lookupTable(ref)
	if err != nil {
		return err
	}

	s := tracker.NewSession(tr)
	s.SelectTable(i)
	if err := s.SelectDate(date); err != nil {
		return err
	}
	if clearRow {
		for _, col := range tbl.DataColumns() {
			if err := s.SetPending(col, ""); err != nil {
				return err
			}
		}
	}
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if err := s.SetPending(col, values[col]); err != nil {
			return fmt.Errorf("%w in %s", err, tbl.Title)
		}
	}

	pending := s.Pending()
	res, err := s.CommitRow()
	if err != nil {
		return err
	}
	if err := persist(cmd); err != nil {
		return err
	}

	switch res {
	case tracker.RowCreated, tracker.RowUpdated:
		color.Green("✓ %s %s %s", tbl.Title, date, res)
		faint := color.New(color.Faint)
		for _, col := range tbl.DataColumns() {
			if v := pending[col]; v != "" {
				fmt.Printf("  %s %s\n", faint.Sprint(padRight(col, 16)), v)
			}
		}
	case tracker.RowDeleted:
		color.Yellow("✗ %s %s deleted", tbl.Title, date)
	default:
		fmt.Printf("%s %s unchanged (no values)\n", tbl.Title, date)
	}
	return nil
}

func init() {
	rowCmd.AddCommand(rowSetCmd)
	rowCmd.AddCommand(rowClearCmd)
	rootCmd.AddCommand(rowCmd)
}

// ABOUTME: CLI commands for exporting and importing calyra data.
// ABOUTME: Supports monthly PNG exports plus JSON, YAML, and Markdown backups.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/render"
	"github.com/harperreed/calyra/internal/storage"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportTable  string
	exportColumn string
	exportViz    string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export calyra data",
	Long: `Export calyra data in various formats.

FORMATS:

  png        Chart or heatmap image of one column (once per month)
  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export (human-readable)
  markdown   Markdown tables (for documentation/sharing)

PNG EXPORTS:

  Each table and column can be exported as an image once per calendar month.
  The image is named {table}_{column}_{viz}_{date}.png and written to the
  directory given with --output (default: current directory).

OPTIONS:

  --output, -o   Write to file (or directory for png) instead of stdout
  --table, -t    Table title or number (required for png, filters markdown)
  --column, -c   Column to draw (png only)
  --viz          graph, bar, area, scatter, step or heatmap
                 (png only, default graph)

EXAMPLES:

  calyra export png -t Workouts -c Reps               # Line chart PNG
  calyra export png -t Workouts -c Reps --viz bar     # Bar chart PNG
  calyra export png -t Workouts -c Reps --viz heatmap # Heatmap PNG
  calyra export json -o backup.json                   # Save a backup
  calyra export yaml                                  # Export as YAML
  calyra export markdown -t Workouts                  # One table as Markdown
  calyra export history                               # Past PNG exports`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"png", "json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]
		if format == "png" {
			return exportPNG(cmd)
		}

		// Backups read the store directly.
		if err := persist(cmd); err != nil {
			return err
		}

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(cmd.Context(), store)
		case "yaml":
			data, err = storage.ExportYAML(cmd.Context(), store)
		case "markdown":
			title := ""
			if exportTable != "" {
				_, tbl, lerr := lookupTable(exportTable)
				if lerr != nil {
					return lerr
				}
				title = tbl.Title
			}
			var md string
			md, err = storage.ExportMarkdown(cmd.Context(), store, title)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use png, json, yaml, or markdown)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
		} else {
			fmt.Println(string(data))
		}

		return nil
	},
}

func exportPNG(cmd *cobra.Command) error {
	if exportTable == "" || exportColumn == "" {
		return fmt.Errorf("png export needs --table and --column")
	}
	s, err := sessionFor(exportTable)
	if err != nil {
		return err
	}
	if _, err := s.ToggleHeatmap(exportColumn); err != nil {
		return err
	}

	exp := &tracker.Exporter{Store: store, Logger: logger}
	rec, err := exp.Export(cmd.Context(), s, exportViz)
	if err != nil {
		var already *tracker.AlreadyExportedError
		if errors.As(err, &already) {
			color.Yellow("%s", already.Error())
			return errors.New("export limit reached")
		}
		if errors.Is(err, tracker.ErrNoData) {
			return fmt.Errorf("no data to export in %s", exportColumn)
		}
		return err
	}

	dir := exportOutput
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, exp.Filename(rec, exportViz))
	if err := writePNG(path, exp, s, rec); err != nil {
		return err
	}

	color.Green("✓ Exported to %s", path)
	fmt.Printf("  %s\n", color.New(color.Faint).Sprintf("%d points, counted against %s", len(rec.ChartData), rec.Month))
	return nil
}

func writePNG(path string, exp *tracker.Exporter, s *tracker.Session, rec *models.MonthlyExport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := exp.Render(f, s, rec, exportViz); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

var exportHistoryCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "List past PNG exports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exp := &tracker.Exporter{Store: store, Logger: logger}
		records, err := exp.History(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list exports: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No exports yet.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, rec := range records {
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(rec.Month),
				padRight(truncate(rec.TableTitle, 24), 24),
				padRight(truncate(rec.ColumnName, 16), 16),
				faint.Sprintf("%d points, %s", len(rec.ChartData), rec.GeneratedTime().Format("January 2, 2006")))
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import calyra data from JSON",
	Long: `Import calyra data from a JSON backup file.

This replaces every table with the tables in the backup and adds its export
history. Export records for the same month, table and column are overwritten.

EXAMPLES:

  calyra import backup.json               # Import from file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		// Drain our own queued writes so they cannot land after the import.
		if err := persist(cmd); err != nil {
			return err
		}
		if err := storage.ImportJSON(cmd.Context(), store, data); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		if _, err := tr.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reload data: %w", err)
		}

		color.Green("✓ Imported %d tables from %s", tr.Len(), filename)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, or directory for png (default: stdout / current directory)")
	exportCmd.Flags().StringVarP(&exportTable, "table", "t", "", "table title or number")
	exportCmd.Flags().StringVarP(&exportColumn, "column", "c", "", "column to draw (png only)")
	exportCmd.Flags().StringVar(&exportViz, "viz", render.VizGraph, "visualization: graph, bar, area, scatter, step or heatmap (png only)")

	exportCmd.AddCommand(exportHistoryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

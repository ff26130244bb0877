// ABOUTME: Backup export and import for tracker data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/calyra/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full backup format for tracker data.
type ExportData struct {
	Version    string                  `json:"version" yaml:"version"`
	ExportedAt time.Time               `json:"exported_at" yaml:"exported_at"`
	Tool       string                  `json:"tool" yaml:"tool"`
	State      *models.AppState        `json:"state" yaml:"state"`
	Exports    []*models.MonthlyExport `json:"exports" yaml:"exports"`
}

// GetAllData retrieves all data for export. A store without a state record
// yields an empty state.
func GetAllData(ctx context.Context, s Store) (*ExportData, error) {
	st, err := s.LoadState(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		st = models.StateFromTables(nil)
	}

	exports, err := s.ListExports(ctx)
	if err != nil {
		return nil, err
	}

	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       DBName,
		State:      st,
		Exports:    exports,
	}, nil
}

// ImportData writes a backup into s. The state record is replaced; export
// records overwrite those with the same key.
func ImportData(ctx context.Context, s Store, data *ExportData) error {
	if data.State != nil {
		if err := s.SaveState(ctx, data.State); err != nil {
			return fmt.Errorf("import state: %w", err)
		}
	}
	for _, rec := range data.Exports {
		if err := s.SaveExport(ctx, rec); err != nil {
			return fmt.Errorf("import export %s: %w", rec.Key(), err)
		}
	}
	return nil
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, s Store) ([]byte, error) {
	data, err := GetAllData(ctx, s)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(ctx context.Context, s Store, raw []byte) error {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal JSON: %w", err)
	}
	return ImportData(ctx, s, &data)
}

// ExportYAML exports all data as YAML, one entry per table.
func ExportYAML(ctx context.Context, s Store) ([]byte, error) {
	data, err := GetAllData(ctx, s)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string       `yaml:"version"`
		ExportedAt string       `yaml:"exported_at"`
		Tool       string       `yaml:"tool"`
		Tables     []yamlTable  `yaml:"tables"`
		Exports    []yamlExport `yaml:"exports,omitempty"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
	}

	for _, t := range models.TablesFromState(data.State) {
		yt := yamlTable{Title: t.Title, Columns: t.DataColumns()}
		for _, r := range t.SortedRows() {
			yt.Rows = append(yt.Rows, map[string]string(r))
		}
		yamlData.Tables = append(yamlData.Tables, yt)
	}

	for _, e := range data.Exports {
		yamlData.Exports = append(yamlData.Exports, yamlExport{
			Month:       e.Month,
			Table:       e.TableTitle,
			Column:      e.ColumnName,
			Points:      len(e.ChartData),
			GeneratedAt: e.GeneratedTime().Format(time.RFC3339),
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlTable struct {
	Title   string              `yaml:"title"`
	Columns []string            `yaml:"columns,omitempty"`
	Rows    []map[string]string `yaml:"rows,omitempty"`
}

type yamlExport struct {
	Month       string `yaml:"month"`
	Table       string `yaml:"table"`
	Column      string `yaml:"column"`
	Points      int    `yaml:"points"`
	GeneratedAt string `yaml:"generated_at"`
}

// ExportMarkdown exports tables as Markdown, one section per table. A
// non-empty title restricts the output to tables with that title.
func ExportMarkdown(ctx context.Context, s Store, title string) (string, error) {
	data, err := GetAllData(ctx, s)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Calyra Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, t := range models.TablesFromState(data.State) {
		if title != "" && t.Title != title {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", t.Title))
		if len(t.Rows) == 0 {
			sb.WriteString("_No entries._\n\n")
			continue
		}

		sb.WriteString("| " + strings.Join(escapeCells(t.Columns), " | ") + " |\n")
		sb.WriteString("|" + strings.Repeat("------|", len(t.Columns)) + "\n")
		for _, r := range t.SortedRows() {
			cells := make([]string, len(t.Columns))
			for i, c := range t.Columns {
				cells[i] = r[c]
			}
			sb.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

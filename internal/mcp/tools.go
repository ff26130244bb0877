// ABOUTME: MCP tool implementations for calyra tables.
// ABOUTME: Provides table, column and row edits plus heatmap, chart and export tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/render"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/harperreed/calyra/internal/values"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_tables",
		Description: "List every table with its columns and row count",
	}, s.handleListTables)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_table",
		Description: "Get a table with all its rows, oldest date first",
	}, s.handleGetTable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_table",
		Description: "Create a new table holding only the Date column",
	}, s.handleAddTable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "rename_table",
		Description: "Change the title of a table",
	}, s.handleRenameTable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_table",
		Description: "Delete a table and all its rows",
	}, s.handleDeleteTable)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_column",
		Description: "Add a column to a table; existing rows get an empty value",
	}, s.handleAddColumn)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "remove_column",
		Description: "Remove a column; rows left without any value are deleted",
	}, s.handleRemoveColumn)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_row",
		Description: "Set values of the row for a date; an empty value clears it and a row with no values is deleted",
	}, s.handleSetRow)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "toggle_heatmap",
		Description: "Turn the heatmap on for a numeric column, or off if it is already on",
	}, s.handleToggleHeatmap)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_heatmap",
		Description: "Get the date to value map of a numeric column",
	}, s.handleGetHeatmap)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_chart",
		Description: "Get the chart series of a column; values that are not numbers count as 0",
	}, s.handleGetChart)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_visualization",
		Description: "Render a column as a PNG chart (graph, bar, area, scatter, step) or heatmap; allowed once per table and column each month",
	}, s.handleExportVisualization)
}

// Tool input/output types

type listTablesInput struct{}

type tableSummary struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

type listTablesOutput struct {
	Tables []tableSummary `json:"tables"`
}

type tableInput struct {
	Table string `json:"table" jsonschema:"Table title or 1-based table number"`
}

type tableOutput struct {
	Number  int          `json:"number"`
	Title   string       `json:"title"`
	Columns []string     `json:"columns"`
	Rows    []models.Row `json:"rows"`
}

type addTableInput struct {
	Title string `json:"title" jsonschema:"Title of the new table"`
}

type renameTableInput struct {
	Table string `json:"table" jsonschema:"Table title or 1-based table number"`
	Title string `json:"title" jsonschema:"New title"`
}

type columnInput struct {
	Table  string `json:"table" jsonschema:"Table title or 1-based table number"`
	Column string `json:"column" jsonschema:"Column name"`
}

type setRowInput struct {
	Table  string            `json:"table" jsonschema:"Table title or 1-based table number"`
	Date   string            `json:"date" jsonschema:"Row date as YYYY-MM-DD, or today or yesterday"`
	Values map[string]string `json:"values" jsonschema:"Column name to value; columns left out keep their current value"`
}

type setRowOutput struct {
	Result  string     `json:"result"`
	Row     models.Row `json:"row,omitempty"`
	Message string     `json:"message"`
}

type toggleHeatmapOutput struct {
	Table   string `json:"table"`
	Column  string `json:"column,omitempty"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type heatmapOutput struct {
	Table  string             `json:"table"`
	Column string             `json:"column"`
	Data   map[string]float64 `json:"data"`
	Min    float64            `json:"min"`
	Max    float64            `json:"max"`
}

type chartOutput struct {
	Table  string             `json:"table"`
	Column string             `json:"column"`
	Points []models.DataPoint `json:"points"`
}

type exportInput struct {
	Table  string `json:"table" jsonschema:"Table title or 1-based table number"`
	Column string `json:"column" jsonschema:"Numeric column to visualize"`
	Viz    string `json:"viz,omitempty" jsonschema:"graph, bar, area, scatter, step or heatmap, defaults to graph"`
}

type exportOutput struct {
	Path    string `json:"path"`
	Month   string `json:"month"`
	Points  int    `json:"points"`
	Message string `json:"message"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleListTables(_ context.Context, _ *mcp.CallToolRequest, _ listTablesInput) (*mcp.CallToolResult, listTablesOutput, error) {
	tables := s.tracker.Tables()
	out := listTablesOutput{Tables: make([]tableSummary, 0, len(tables))}
	for i, tbl := range tables {
		out.Tables = append(out.Tables, tableSummary{
			Number:  i + 1,
			Title:   tbl.Title,
			Columns: tbl.Columns,
			Rows:    len(tbl.Rows),
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetTable(_ context.Context, _ *mcp.CallToolRequest, input tableInput) (*mcp.CallToolResult, tableOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.tracker.Resolve(input.Table)
	if err != nil {
		return nil, tableOutput{}, err
	}
	tbl, ok := s.tracker.Table(i)
	if !ok {
		return nil, tableOutput{}, fmt.Errorf("%w: %q", tracker.ErrTableNotFound, input.Table)
	}
	return nil, tableOutput{
		Number:  i + 1,
		Title:   tbl.Title,
		Columns: tbl.Columns,
		Rows:    tbl.SortedRows(),
	}, nil
}

func (s *Server) handleAddTable(ctx context.Context, _ *mcp.CallToolRequest, input addTableInput) (*mcp.CallToolResult, tableSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.tracker.AddTable(input.Title)
	if !ok {
		return nil, tableSummary{}, errors.New("title is required")
	}
	if err := s.persist(ctx); err != nil {
		return nil, tableSummary{}, err
	}
	tbl, _ := s.tracker.Table(i)
	return nil, tableSummary{Number: i + 1, Title: tbl.Title, Columns: tbl.Columns}, nil
}

func (s *Server) handleRenameTable(ctx context.Context, _ *mcp.CallToolRequest, input renameTableInput) (*mcp.CallToolResult, simpleOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.tracker.Resolve(input.Table)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if !s.tracker.RenameTable(i, input.Title) {
		return nil, simpleOutput{}, errors.New("title is required")
	}
	if err := s.persist(ctx); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Renamed table %d to %s", i+1, strings.TrimSpace(input.Title))}, nil
}

func (s *Server) handleDeleteTable(ctx context.Context, _ *mcp.CallToolRequest, input tableInput) (*mcp.CallToolResult, simpleOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.tracker.Resolve(input.Table)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	tbl, _ := s.tracker.Table(i)
	if !s.tracker.DeleteTable(i) {
		return nil, simpleOutput{}, fmt.Errorf("%w: %q", tracker.ErrTableNotFound, input.Table)
	}
	s.session.TableDeleted(i)
	if err := s.persist(ctx); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted table %s (%d rows)", tbl.Title, len(tbl.Rows))}, nil
}

func (s *Server) handleAddColumn(ctx context.Context, _ *mcp.CallToolRequest, input columnInput) (*mcp.CallToolResult, simpleOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.tracker.Resolve(input.Table)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if !s.tracker.AddColumn(i, input.Column) {
		return nil, simpleOutput{}, fmt.Errorf("cannot add column %q: name is blank or already used", input.Column)
	}
	if err := s.persist(ctx); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Added column %s", strings.TrimSpace(input.Column))}, nil
}

func (s *Server) handleRemoveColumn(ctx context.Context, _ *mcp.CallToolRequest, input columnInput) (*mcp.CallToolResult, simpleOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.tracker.Resolve(input.Table)
	if err != nil {
		return nil, simpleOutput{}, err
	}
	if input.Column == models.DateColumn {
		return nil, simpleOutput{}, errors.New("the Date column cannot be removed")
	}
	if !s.tracker.RemoveColumn(i, input.Column) {
		return nil, simpleOutput{}, fmt.Errorf("%w: %s", tracker.ErrUnknownColumn, input.Column)
	}
	s.session.Revalidate()
	if err := s.persist(ctx); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Removed column %s", input.Column)}, nil
}

func (s *Server) handleSetRow(ctx context.Context, _ *mcp.CallToolRequest, input setRowInput) (*mcp.CallToolResult, setRowOutput, error) {
	date, err := models.ParseDate(input.Date, time.Now())
	if err != nil {
		return nil, setRowOutput{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.selectTable(input.Table)
	if err != nil {
		return nil, setRowOutput{}, err
	}
	if err := s.session.SelectDate(date); err != nil {
		return nil, setRowOutput{}, err
	}
	for col, val := range input.Values {
		if err := s.session.SetPending(col, val); err != nil {
			s.session.ClearDate()
			return nil, setRowOutput{}, err
		}
	}
	res, err := s.session.CommitRow()
	if err != nil {
		return nil, setRowOutput{}, err
	}
	s.session.Revalidate()
	if err := s.persist(ctx); err != nil {
		return nil, setRowOutput{}, err
	}

	out := setRowOutput{Result: res.String(), Message: fmt.Sprintf("Row %s %s", date, res)}
	if tbl, ok := s.tracker.Table(i); ok {
		if idx := tbl.RowIndex(date); idx >= 0 {
			out.Row = tbl.Rows[idx]
		}
	}
	return nil, out, nil
}

func (s *Server) handleToggleHeatmap(_ context.Context, _ *mcp.CallToolRequest, input columnInput) (*mcp.CallToolResult, toggleHeatmapOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.selectTable(input.Table); err != nil {
		return nil, toggleHeatmapOutput{}, err
	}
	if input.Column == models.DateColumn {
		return nil, toggleHeatmapOutput{}, errors.New("the Date column cannot be shown as a heatmap")
	}
	enabled, err := s.session.ToggleHeatmap(input.Column)
	if err != nil {
		return nil, toggleHeatmapOutput{}, err
	}

	tbl, _ := s.session.SelectedTable()
	out := toggleHeatmapOutput{Table: tbl.Title, Enabled: enabled, Message: "Heatmap off"}
	if enabled {
		out.Column = s.session.HeatmapColumn()
		out.Message = fmt.Sprintf("Heatmap on for %s", out.Column)
	}
	return nil, out, nil
}

func (s *Server) handleGetHeatmap(_ context.Context, _ *mcp.CallToolRequest, input columnInput) (*mcp.CallToolResult, heatmapOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.showHeatmap(input.Table, input.Column); err != nil {
		return nil, heatmapOutput{}, err
	}
	tbl, _ := s.session.SelectedTable()
	data := s.session.HeatmapData()
	lo, hi := values.Bounds(data)
	return nil, heatmapOutput{
		Table:  tbl.Title,
		Column: s.session.HeatmapColumn(),
		Data:   data,
		Min:    lo,
		Max:    hi,
	}, nil
}

func (s *Server) handleGetChart(_ context.Context, _ *mcp.CallToolRequest, input columnInput) (*mcp.CallToolResult, chartOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.selectTable(input.Table); err != nil {
		return nil, chartOutput{}, err
	}
	points, err := s.session.ChartSeriesFor(input.Column)
	if err != nil {
		return nil, chartOutput{}, err
	}
	tbl, _ := s.session.SelectedTable()
	return nil, chartOutput{Table: tbl.Title, Column: input.Column, Points: points}, nil
}

func (s *Server) handleExportVisualization(ctx context.Context, _ *mcp.CallToolRequest, input exportInput) (*mcp.CallToolResult, exportOutput, error) {
	viz := input.Viz
	if viz == "" {
		viz = render.VizGraph
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.showHeatmap(input.Table, input.Column); err != nil {
		return nil, exportOutput{}, err
	}
	rec, err := s.exporter.Export(ctx, s.session, viz)
	if err != nil {
		return nil, exportOutput{}, err
	}

	path := filepath.Join(s.outDir, s.exporter.Filename(rec, viz))
	if err := writeImage(path, func(f *os.File) error {
		return s.exporter.Render(f, s.session, rec, viz)
	}); err != nil {
		return nil, exportOutput{}, err
	}

	return nil, exportOutput{
		Path:    path,
		Month:   rec.Month,
		Points:  len(rec.ChartData),
		Message: fmt.Sprintf("Exported %s %s to %s", rec.TableTitle, rec.ColumnName, path),
	}, nil
}

// selectTable resolves ref and makes it the session's selection, keeping the
// view state when it is already selected. Callers hold s.mu.
func (s *Server) selectTable(ref string) (int, error) {
	i, err := s.tracker.Resolve(ref)
	if err != nil {
		return -1, err
	}
	s.session.Revalidate()
	if !s.session.Select(i) {
		return -1, fmt.Errorf("%w: %q", tracker.ErrTableNotFound, ref)
	}
	return i, nil
}

// showHeatmap selects the table and makes column its heatmap column.
// Callers hold s.mu.
func (s *Server) showHeatmap(ref, column string) error {
	if _, err := s.selectTable(ref); err != nil {
		return err
	}
	if column == models.DateColumn {
		return errors.New("the Date column cannot be shown as a heatmap")
	}
	if s.session.HeatmapColumn() == column {
		return nil
	}
	_, err := s.session.ToggleHeatmap(column)
	return err
}

// persist waits for the background writer so write failures reach the caller.
func (s *Server) persist(ctx context.Context) error {
	if err := s.tracker.Flush(ctx); err != nil {
		return fmt.Errorf("change kept in memory but not saved: %w", err)
	}
	return nil
}

// writeImage creates path and fills it with fn. A partial file is removed.
func writeImage(path string, fn func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

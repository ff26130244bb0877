// ABOUTME: Table, Row, and AppState models for tracker data.
// ABOUTME: Converts between the in-memory table list and the persisted state shape.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateColumn is the implicit first column of every table. It doubles as the
// row key: a table holds at most one row per date.
const DateColumn = "Date"

// DateFormat is the layout of row dates.
const DateFormat = "2006-01-02"

// ParseDate validates a row date. "today" and "yesterday" resolve against now.
func ParseDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "today":
		return now.Format(DateFormat), nil
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(DateFormat), nil
	}
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return d.Format(DateFormat), nil
}

// Row maps column names to free-form cell values. An empty string means no value.
type Row map[string]string

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Date returns the row's date key.
func (r Row) Date() string {
	return r[DateColumn]
}

// IsBlank reports whether every non-Date column in columns is empty
// (whitespace counts as empty).
func (r Row) IsBlank(columns []string) bool {
	for _, col := range columns {
		if col == DateColumn {
			continue
		}
		if strings.TrimSpace(r[col]) != "" {
			return false
		}
	}
	return true
}

// Table is a named tracker with an ordered column list and date-keyed rows.
type Table struct {
	Title   string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table holding only the Date column.
func NewTable(title string) Table {
	return Table{
		Title:   title,
		Columns: []string{DateColumn},
		Rows:    []Row{},
	}
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Title:   t.Title,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// HasColumn reports whether name is one of the table's columns.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DataColumns returns the columns other than Date.
func (t Table) DataColumns() []string {
	var cols []string
	for _, c := range t.Columns {
		if c != DateColumn {
			cols = append(cols, c)
		}
	}
	return cols
}

// RowIndex returns the position of the row for date, or -1.
func (t Table) RowIndex(date string) int {
	for i, r := range t.Rows {
		if r.Date() == date {
			return i
		}
	}
	return -1
}

// SortedRows returns a copy of the rows ordered by date ascending.
func (t Table) SortedRows() []Row {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date() < rows[j].Date()
	})
	return rows
}

// TableSchema is the persisted form of a table's columns and rows.
type TableSchema struct {
	Columns []string `json:"columns" yaml:"columns"`
	Data    []Row    `json:"data" yaml:"data"`
}

// AppState is the persisted form of every table. Table identity is the
// position in Titles; TableSchemas is keyed by that position.
type AppState struct {
	Titles       []string            `json:"titles" yaml:"titles"`
	TableSchemas map[int]TableSchema `json:"tableSchemas" yaml:"tableSchemas"`
}

// StateFromTables builds the persisted state for tables. The result shares
// no memory with the input.
func StateFromTables(tables []Table) *AppState {
	st := &AppState{
		Titles:       make([]string, len(tables)),
		TableSchemas: make(map[int]TableSchema, len(tables)),
	}
	for i, t := range tables {
		c := t.Clone()
		st.Titles[i] = c.Title
		st.TableSchemas[i] = TableSchema{Columns: c.Columns, Data: c.Rows}
	}
	return st
}

// TablesFromState converts persisted state into tables, repairing shapes
// written by older versions or by hand: a missing schema becomes an empty
// table, Date is forced to the front, duplicate columns collapse, rows
// without a date are dropped, the last row wins for a repeated date, blank
// rows are removed and every row carries every column.
func TablesFromState(st *AppState) []Table {
	if st == nil {
		return []Table{}
	}
	tables := make([]Table, 0, len(st.Titles))
	for i, title := range st.Titles {
		schema, ok := st.TableSchemas[i]
		if !ok {
			tables = append(tables, NewTable(title))
			continue
		}
		tables = append(tables, normalizeTable(title, schema))
	}
	return tables
}

func normalizeTable(title string, schema TableSchema) Table {
	t := Table{Title: title, Columns: []string{DateColumn}, Rows: []Row{}}
	seen := map[string]bool{DateColumn: true}
	for _, c := range schema.Columns {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		t.Columns = append(t.Columns, c)
	}

	if len(t.Columns) == 1 {
		return t
	}

	for _, r := range schema.Data {
		date := r.Date()
		if date == "" {
			continue
		}
		row := Row{DateColumn: date}
		for _, c := range t.Columns[1:] {
			row[c] = r[c]
		}
		if row.IsBlank(t.Columns) {
			continue
		}
		if idx := t.RowIndex(date); idx >= 0 {
			t.Rows[idx] = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ABOUTME: Tests for Table, Row, and AppState conversion.
// ABOUTME: Covers state shape repair and deep-copy behaviour.
package models

import (
	"reflect"
	"testing"
	"time"
)

func TestNewTable(t *testing.T) {
	tbl := NewTable("Workouts")

	if tbl.Title != "Workouts" {
		t.Errorf("Title = %s, want Workouts", tbl.Title)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{DateColumn}) {
		t.Errorf("Columns = %v, want [Date]", tbl.Columns)
	}
	if len(tbl.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(tbl.Rows))
	}
}

func TestRowIsBlank(t *testing.T) {
	cols := []string{DateColumn, "Reps", "Notes"}
	tests := []struct {
		name string
		row  Row
		want bool
	}{
		{"all empty", Row{DateColumn: "2024-06-01", "Reps": "", "Notes": ""}, true},
		{"whitespace only", Row{DateColumn: "2024-06-01", "Reps": "  ", "Notes": "\t"}, true},
		{"missing keys", Row{DateColumn: "2024-06-01"}, true},
		{"one value", Row{DateColumn: "2024-06-01", "Reps": "10", "Notes": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.IsBlank(cols); got != tt.want {
				t.Errorf("IsBlank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableCloneIsDeep(t *testing.T) {
	orig := Table{
		Title:   "Sleep",
		Columns: []string{DateColumn, "Hours"},
		Rows:    []Row{{DateColumn: "2024-01-01", "Hours": "7"}},
	}
	c := orig.Clone()
	c.Columns[1] = "Minutes"
	c.Rows[0]["Hours"] = "9"

	if orig.Columns[1] != "Hours" {
		t.Error("clone shares column slice")
	}
	if orig.Rows[0]["Hours"] != "7" {
		t.Error("clone shares row maps")
	}
}

func TestSortedRows(t *testing.T) {
	tbl := Table{
		Columns: []string{DateColumn, "v"},
		Rows: []Row{
			{DateColumn: "2024-03-01", "v": "3"},
			{DateColumn: "2024-01-01", "v": "1"},
			{DateColumn: "2024-02-01", "v": "2"},
		},
	}
	rows := tbl.SortedRows()
	for i, want := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
		if rows[i].Date() != want {
			t.Errorf("rows[%d] = %s, want %s", i, rows[i].Date(), want)
		}
	}
	if tbl.Rows[0].Date() != "2024-03-01" {
		t.Error("SortedRows reordered the table itself")
	}
}

func TestStateRoundTrip(t *testing.T) {
	tables := []Table{
		{
			Title:   "Workouts",
			Columns: []string{DateColumn, "Reps"},
			Rows:    []Row{{DateColumn: "2024-06-01", "Reps": "10/10"}},
		},
		NewTable("Empty"),
	}

	st := StateFromTables(tables)
	if !reflect.DeepEqual(st.Titles, []string{"Workouts", "Empty"}) {
		t.Fatalf("Titles = %v", st.Titles)
	}
	if len(st.TableSchemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(st.TableSchemas))
	}

	back := TablesFromState(st)
	if !reflect.DeepEqual(back, tables) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, tables)
	}
}

func TestTablesFromStateRepairsShape(t *testing.T) {
	st := &AppState{
		Titles: []string{"A", "B"},
		TableSchemas: map[int]TableSchema{
			0: {
				Columns: []string{"Mood", DateColumn, "Mood", "Energy"},
				Data: []Row{
					{DateColumn: "2024-01-01", "Mood": "5"},
					{"Mood": "7"}, // no date
					{DateColumn: "2024-01-02", "Mood": "", "Energy": ""},
					{DateColumn: "2024-01-01", "Mood": "6", "Energy": "3"},
				},
			},
			// 1 missing, 7 orphaned
			7: {Columns: []string{DateColumn, "x"}},
		},
	}

	tables := TablesFromState(st)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}

	a := tables[0]
	if !reflect.DeepEqual(a.Columns, []string{DateColumn, "Mood", "Energy"}) {
		t.Errorf("columns = %v", a.Columns)
	}
	if len(a.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d: %v", len(a.Rows), a.Rows)
	}
	want := Row{DateColumn: "2024-01-01", "Mood": "6", "Energy": "3"}
	if !reflect.DeepEqual(a.Rows[0], want) {
		t.Errorf("row = %v, want %v", a.Rows[0], want)
	}

	b := tables[1]
	if b.Title != "B" || len(b.Columns) != 1 || len(b.Rows) != 0 {
		t.Errorf("missing schema not defaulted: %#v", b)
	}
}

func TestTablesFromStateDateOnlyDropsRows(t *testing.T) {
	st := &AppState{
		Titles: []string{"A"},
		TableSchemas: map[int]TableSchema{
			0: {Columns: []string{DateColumn}, Data: []Row{{DateColumn: "2024-01-01", "gone": "1"}}},
		},
	}
	tables := TablesFromState(st)
	if len(tables[0].Rows) != 0 {
		t.Errorf("expected no rows for a Date-only table, got %v", tables[0].Rows)
	}
}

func TestTablesFromStateNil(t *testing.T) {
	if got := TablesFromState(nil); len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestExportKey(t *testing.T) {
	got := ExportKey("2024-06", "Workouts", "Reps")
	if got != "2024-06_Workouts_Reps" {
		t.Errorf("ExportKey = %s", got)
	}

	e := &MonthlyExport{Month: "2024-06", TableTitle: "Workouts", ColumnName: "Reps"}
	if e.Key() != got {
		t.Errorf("Key() = %s, want %s", e.Key(), got)
	}
}

func TestMonthOf(t *testing.T) {
	d := time.Date(2024, time.June, 30, 23, 59, 0, 0, time.UTC)
	if got := MonthOf(d); got != "2024-06" {
		t.Errorf("MonthOf = %s, want 2024-06", got)
	}
}

func TestGeneratedTime(t *testing.T) {
	at := time.Date(2024, time.June, 3, 12, 0, 0, 0, time.UTC)
	e := &MonthlyExport{GeneratedAt: at.UnixMilli()}
	if !e.GeneratedTime().Equal(at) {
		t.Errorf("GeneratedTime = %v, want %v", e.GeneratedTime(), at)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-06-01", "2024-06-01", false},
		{" 2024-06-01 ", "2024-06-01", false},
		{"today", "2024-06-03", false},
		{"Yesterday", "2024-06-02", false},
		{"2024-6-1", "", true},
		{"2024-02-30", "", true},
		{"", "", true},
		{"06/01/2024", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

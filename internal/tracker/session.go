// ABOUTME: Per-process view state over a Tracker: selection, pending row, heatmap column.
// ABOUTME: Heatmap and chart projections are cached until the state version changes.
package tracker

import (
	"fmt"

	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/values"
)

const heatmapInvalidMessage = `This column contains invalid values. Only numbers and fractions (like "10/10") can be displayed as a heatmap.`

// Session holds derived view state. It is never persisted and is not safe
// for concurrent use.
type Session struct {
	t *Tracker

	selected      int
	date          string
	pending       models.Row
	heatmapColumn string

	cache projectionCache
}

type cacheKey struct {
	table   int
	column  string
	version uint64
}

type projectionCache struct {
	key     cacheKey
	valid   bool
	heatmap map[string]float64
	series  []models.DataPoint
}

// NewSession creates a session with nothing selected.
func NewSession(t *Tracker) *Session {
	return &Session{t: t, selected: -1}
}

// Tracker returns the tracker the session views.
func (s *Session) Tracker() *Tracker {
	return s.t
}

// SelectTable toggles the selection of table i. Selecting a different table
// clears the date, the pending row and the heatmap column. It returns false
// for an index that does not exist.
func (s *Session) SelectTable(i int) bool {
	if i == s.selected {
		s.selected = -1
		s.clearView()
		return true
	}
	if i < 0 || i >= s.t.Len() {
		return false
	}
	s.selected = i
	s.clearView()
	return true
}

// Select makes table i the selection without toggling. Re-selecting the
// current table keeps the view state.
func (s *Session) Select(i int) bool {
	if i == s.selected && i >= 0 && i < s.t.Len() {
		return true
	}
	if i == s.selected {
		return false
	}
	return s.SelectTable(i)
}

// Selected returns the selected table index.
func (s *Session) Selected() (int, bool) {
	return s.selected, s.selected >= 0
}

// SelectedTable returns a copy of the selected table.
func (s *Session) SelectedTable() (models.Table, bool) {
	if s.selected < 0 {
		return models.Table{}, false
	}
	return s.t.Table(s.selected)
}

// TableDeleted adjusts the selection after table i was removed.
func (s *Session) TableDeleted(i int) {
	switch {
	case s.selected == i:
		s.selected = -1
		s.clearView()
	case s.selected > i:
		s.selected--
	}
}

// SelectDate starts editing the row for date, loading its current values.
func (s *Session) SelectDate(date string) error {
	tbl, ok := s.SelectedTable()
	if !ok {
		return ErrNoTableSelected
	}
	if len(tbl.DataColumns()) == 0 {
		return ErrNoColumns
	}

	s.date = date
	s.pending = models.Row{models.DateColumn: date}
	if idx := tbl.RowIndex(date); idx >= 0 {
		s.pending = tbl.Rows[idx].Clone()
	}
	return nil
}

// ClearDate drops the selected date and the pending row.
func (s *Session) ClearDate() {
	s.date = ""
	s.pending = nil
}

// Date returns the date being edited.
func (s *Session) Date() string {
	return s.date
}

// SetPending sets one value of the row being edited.
func (s *Session) SetPending(column, value string) error {
	if s.date == "" {
		return ErrNoDateSelected
	}
	tbl, ok := s.SelectedTable()
	if !ok {
		return ErrNoTableSelected
	}
	if column == models.DateColumn || !tbl.HasColumn(column) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	s.pending[column] = value
	return nil
}

// Pending returns a copy of the row being edited.
func (s *Session) Pending() models.Row {
	if s.pending == nil {
		return nil
	}
	return s.pending.Clone()
}

// CommitRow writes the pending row and ends editing.
func (s *Session) CommitRow() (UpsertResult, error) {
	if s.selected < 0 {
		return RowUnchanged, ErrNoTableSelected
	}
	if s.date == "" {
		return RowUnchanged, ErrNoDateSelected
	}
	res := s.t.UpsertRow(s.selected, s.date, s.pending)
	s.ClearDate()
	return res, nil
}

// ToggleHeatmap turns the heatmap on for column, or off if it is already the
// heatmap column. Date is ignored. A column holding values that are neither
// numbers nor fractions is refused with a ValidationError.
func (s *Session) ToggleHeatmap(column string) (bool, error) {
	tbl, ok := s.SelectedTable()
	if !ok {
		return false, ErrNoTableSelected
	}
	if column == models.DateColumn {
		return s.heatmapColumn != "", nil
	}
	if column == s.heatmapColumn {
		s.heatmapColumn = ""
		return false, nil
	}
	if !tbl.HasColumn(column) {
		return false, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if !values.IsHeatmapEligible(column, tbl.Rows) {
		return false, &ValidationError{Message: heatmapInvalidMessage}
	}
	s.heatmapColumn = column
	return true, nil
}

// HeatmapColumn returns the column the heatmap is shown for, or "".
func (s *Session) HeatmapColumn() string {
	return s.heatmapColumn
}

// Revalidate drops a selection whose table is gone and a heatmap column that
// no longer exists or no longer holds only numbers.
func (s *Session) Revalidate() {
	if s.selected < 0 {
		return
	}
	tbl, ok := s.t.Table(s.selected)
	if !ok {
		s.selected = -1
		s.clearView()
		return
	}
	if s.heatmapColumn == "" {
		return
	}
	if !tbl.HasColumn(s.heatmapColumn) || !values.IsHeatmapEligible(s.heatmapColumn, tbl.Rows) {
		s.heatmapColumn = ""
	}
}

// HeatmapData maps dates to values of the heatmap column. It is empty when
// no table or column is selected.
func (s *Session) HeatmapData() map[string]float64 {
	if !s.project() {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(s.cache.heatmap))
	for k, v := range s.cache.heatmap {
		out[k] = v
	}
	return out
}

// ChartSeries returns the chart series of the heatmap column.
func (s *Session) ChartSeries() []models.DataPoint {
	if !s.project() {
		return []models.DataPoint{}
	}
	return append([]models.DataPoint(nil), s.cache.series...)
}

// HasDataToExport reports whether the heatmap column has any row to draw.
func (s *Session) HasDataToExport() bool {
	return s.project() && len(s.cache.series) > 0
}

// ChartSeriesFor returns the chart series of any column of the selected table.
func (s *Session) ChartSeriesFor(column string) ([]models.DataPoint, error) {
	tbl, ok := s.SelectedTable()
	if !ok {
		return nil, ErrNoTableSelected
	}
	if column == models.DateColumn || !tbl.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return values.ChartSeries(tbl.Rows, column), nil
}

// project refreshes the cached projections if the selection, column or
// state version changed. It reports whether there is anything to project.
func (s *Session) project() bool {
	if s.selected < 0 || s.heatmapColumn == "" {
		return false
	}
	key := cacheKey{table: s.selected, column: s.heatmapColumn, version: s.t.Version()}
	if s.cache.valid && s.cache.key == key {
		return true
	}
	tbl, ok := s.t.Table(s.selected)
	if !ok {
		s.cache.valid = false
		return false
	}
	s.cache = projectionCache{
		key:     key,
		valid:   true,
		heatmap: values.HeatmapData(tbl.Rows, s.heatmapColumn),
		series:  values.ChartSeries(tbl.Rows, s.heatmapColumn),
	}
	return true
}

func (s *Session) clearView() {
	s.date = ""
	s.pending = nil
	s.heatmapColumn = ""
}

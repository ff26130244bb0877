// ABOUTME: Tests for value coercion and heatmap/chart projections.
// ABOUTME: Pins the fraction rules and the heatmap-vs-chart fallback asymmetry.
package values

import (
	"fmt"
	"testing"

	"github.com/harperreed/calyra/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10/10", 1, true},
		{" 3 / 4 ", 0.75, true},
		{"7", 7, true},
		{"-4", -4, true},
		{" 2.5 ", 2.5, true},
		{"-1/4", -0.25, true},
		{"5/0", 0, false},
		{"5/2/1", 0, false},
		{"1/2/3", 0, false},
		{"abc", 0, false},
		{"a/b", 0, false},
		{"/2", 0, false},
		{"3/", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"Infinity", 0, false},
		{"NaN", 0, false},
		{"1/Inf", 0, false},
		{"0x1p2", 0, false},
		{"1_000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Coerce(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestChartValueFallsBackToZero(t *testing.T) {
	assert.Equal(t, 0.0, ChartValue(""))
	assert.Equal(t, 0.0, ChartValue("nope"))
	assert.Equal(t, 0.0, ChartValue("5/0"))
	assert.Equal(t, 0.5, ChartValue("1/2"))
}

func rows(column string, vals ...string) []models.Row {
	out := make([]models.Row, len(vals))
	for i, v := range vals {
		out[i] = models.Row{
			models.DateColumn: fmt.Sprintf("2024-01-%02d", i+1),
			column:            v,
		}
	}
	return out
}

func TestIsHeatmapEligible(t *testing.T) {
	tests := []struct {
		name string
		rows []models.Row
		want bool
	}{
		{"numbers and fractions", rows("c", "1", "10/10", " 3 / 4 ", "-2"), true},
		{"empty cells allowed", rows("c", "", "4", ""), true},
		{"every row empty", rows("c", "", "", ""), true},
		{"no rows", nil, true},
		{"text value", rows("c", "1", "lots"), false},
		{"division by zero", rows("c", "1", "5/0"), false},
		{"too many parts", rows("c", "1/2/3"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeatmapEligible("c", tt.rows))
		})
	}
}

func TestIsHeatmapEligibleMissingColumn(t *testing.T) {
	r := []models.Row{{models.DateColumn: "2024-01-01", "other": "x"}}
	assert.True(t, IsHeatmapEligible("c", r))
}

func TestHeatmapDataOmitsUnparseable(t *testing.T) {
	r := []models.Row{
		{models.DateColumn: "2024-01-01", "c": "4"},
		{models.DateColumn: "2024-01-02", "c": ""},
		{models.DateColumn: "2024-01-03", "c": "junk"},
		{models.DateColumn: "2024-01-04", "c": "1/4"},
	}

	got := HeatmapData(r, "c")
	assert.Equal(t, map[string]float64{
		"2024-01-01": 4,
		"2024-01-04": 0.25,
	}, got)
}

func TestChartSeriesKeepsEveryDateSorted(t *testing.T) {
	r := []models.Row{
		{models.DateColumn: "2024-01-03", "c": "junk"},
		{models.DateColumn: "2024-01-01", "c": "4"},
		{models.DateColumn: "2024-01-02", "c": ""},
	}

	got := ChartSeries(r, "c")
	require.Len(t, got, 3)
	assert.Equal(t, []models.DataPoint{
		{Date: "2024-01-01", Value: 4},
		{Date: "2024-01-02", Value: 0},
		{Date: "2024-01-03", Value: 0},
	}, got)
}

func TestBoundsAndNormalize(t *testing.T) {
	lo, hi := Bounds(map[string]float64{"a": 3, "b": -1, "c": 7})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	lo, hi = Bounds(nil)
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	assert.Equal(t, 0.5, Normalize(5, 5, 5))
	assert.Equal(t, 0.0, Normalize(-1, -1, 7))
	assert.Equal(t, 1.0, Normalize(7, -1, 7))
	assert.Equal(t, 0.5, Normalize(3, -1, 7))
}

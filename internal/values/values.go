// ABOUTME: Value coercion for tracker cells: plain numbers and "a/b" fractions.
// ABOUTME: Builds heatmap maps and chart series from table rows.
package values

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/harperreed/calyra/internal/models"
)

// Coerce parses a cell value as a number. A value containing "/" must be
// exactly two non-empty numeric parts with a non-zero denominator and yields
// their quotient. The second return is false for empty or unparseable input.
func Coerce(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return 0, false
		}
		num, ok := parseFinite(parts[0])
		if !ok {
			return 0, false
		}
		denom, ok := parseFinite(parts[1])
		if !ok || denom == 0 {
			return 0, false
		}
		return num / denom, true
	}

	return parseFinite(s)
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// ParseFloat also reads hex floats and "_" separators; cells are decimal only.
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ChartValue coerces s, falling back to 0 so every date keeps its place on a
// chart axis.
func ChartValue(s string) float64 {
	v, ok := Coerce(s)
	if !ok {
		return 0
	}
	return v
}

// IsHeatmapEligible reports whether every row's value for column is empty or
// coerces to a number.
func IsHeatmapEligible(column string, rows []models.Row) bool {
	for _, r := range rows {
		v := r[column]
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := Coerce(v); !ok {
			return false
		}
	}
	return true
}

// HeatmapData maps each date to the coerced value of column. Dates whose
// value is empty or unparseable are left out so they render as "no data".
func HeatmapData(rows []models.Row, column string) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range rows {
		v, ok := Coerce(r[column])
		if !ok {
			continue
		}
		out[r.Date()] = v
	}
	return out
}

// ChartSeries returns one point per row, sorted by date, using ChartValue.
func ChartSeries(rows []models.Row, column string) []models.DataPoint {
	series := make([]models.DataPoint, 0, len(rows))
	for _, r := range rows {
		series = append(series, models.DataPoint{
			Date:  r.Date(),
			Value: ChartValue(r[column]),
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date < series[j].Date
	})
	return series
}

// Bounds returns the smallest and largest value in data. Both are 0 for an
// empty map.
func Bounds(data map[string]float64) (lo, hi float64) {
	first := true
	for _, v := range data {
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Normalize maps v into [0,1] relative to lo and hi. A zero range maps to 0.5.
func Normalize(v, lo, hi float64) float64 {
	span := hi - lo
	if span == 0 {
		return 0.5
	}
	return (v - lo) / span
}

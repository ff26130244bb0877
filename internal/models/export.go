// ABOUTME: Monthly export record and chart data point models.
// ABOUTME: Defines the composite key that rate-limits exports per month.
package models

import (
	"fmt"
	"time"
)

// MonthFormat is the layout of an export month key.
const MonthFormat = "2006-01"

// DataPoint is one date/value pair of a chart series.
type DataPoint struct {
	Date  string  `json:"date" yaml:"date"`
	Value float64 `json:"value" yaml:"value"`
}

// MonthlyExport records that a (table, column) pair was exported during a
// calendar month. Its presence blocks another export in the same month.
type MonthlyExport struct {
	Month       string      `json:"month" yaml:"month"`
	TableTitle  string      `json:"tableTitle" yaml:"tableTitle"`
	ColumnName  string      `json:"columnName" yaml:"columnName"`
	ChartData   []DataPoint `json:"chartData" yaml:"chartData"`
	GeneratedAt int64       `json:"generatedAt" yaml:"generatedAt"` // epoch milliseconds
}

// Key returns the storage key of the record.
func (e *MonthlyExport) Key() string {
	return ExportKey(e.Month, e.TableTitle, e.ColumnName)
}

// GeneratedTime returns GeneratedAt as a time in the local zone.
func (e *MonthlyExport) GeneratedTime() time.Time {
	return time.UnixMilli(e.GeneratedAt)
}

// ExportKey builds the composite key "{month}_{tableTitle}_{columnName}".
func ExportKey(month, tableTitle, columnName string) string {
	return fmt.Sprintf("%s_%s_%s", month, tableTitle, columnName)
}

// MonthOf returns the YYYY-MM month key for t.
func MonthOf(t time.Time) string {
	return t.Format(MonthFormat)
}

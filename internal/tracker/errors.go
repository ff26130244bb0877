// ABOUTME: Sentinel and user-facing error types for tracker operations.
// ABOUTME: ValidationError and AlreadyExportedError carry the messages shown to users.
package tracker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTableNotFound is returned when a table reference matches nothing.
	ErrTableNotFound = errors.New("table not found")
	// ErrNoTableSelected is returned when an operation needs a selected table.
	ErrNoTableSelected = errors.New("no table selected")
	// ErrNoDateSelected is returned when a row edit has no date to apply to.
	ErrNoDateSelected = errors.New("no date selected")
	// ErrNoColumns is returned when rows are edited on a table with only Date.
	ErrNoColumns = errors.New("add at least one column before adding rows")
	// ErrUnknownColumn is returned for a column the selected table lacks.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNoData is returned when an export has no points to draw.
	ErrNoData = errors.New("no data to export")
	// ErrRenderFailed is returned when an image could not be produced.
	ErrRenderFailed = errors.New("failed to render visualization")
)

// ValidationError is a rejected user action. Message is shown as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AlreadyExportedError reports that a (table, column) pair was exported
// earlier in the current month.
type AlreadyExportedError struct {
	TableTitle  string
	ColumnName  string
	GeneratedAt time.Time
}

func (e *AlreadyExportedError) Error() string {
	return fmt.Sprintf("You've already exported this data this month on %s. You can export again next month.",
		e.GeneratedAt.Format("January 2, 2006"))
}

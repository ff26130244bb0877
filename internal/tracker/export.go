// ABOUTME: Monthly export gate: one export per table, column and calendar month.
// ABOUTME: Records the export in the store and renders the selected visualization.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/render"
	"github.com/harperreed/calyra/internal/storage"
)

const exportNeedsSelectionMessage = "Please select a table and enable heatmap visualization on a column before exporting."

// Exporter records monthly exports.
type Exporter struct {
	Store  storage.Store
	Clock  func() time.Time
	Logger *log.Logger
}

func (e *Exporter) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Exporter) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

// Export records an export of the session's heatmap column for the current
// month and returns the record. It fails with AlreadyExportedError when the
// same table and column were exported earlier this month. The check and the
// write are not atomic; two concurrent exports may both succeed.
func (e *Exporter) Export(ctx context.Context, s *Session, viz string) (*models.MonthlyExport, error) {
	tbl, ok := s.SelectedTable()
	column := s.HeatmapColumn()
	if !ok || column == "" {
		return nil, &ValidationError{Message: exportNeedsSelectionMessage}
	}
	viz, err := render.ParseViz(viz)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	now := e.now()
	month := models.MonthOf(now)

	prev, err := e.Store.GetExport(ctx, month, tbl.Title, column)
	switch {
	case err == nil:
		return nil, &AlreadyExportedError{
			TableTitle:  prev.TableTitle,
			ColumnName:  prev.ColumnName,
			GeneratedAt: prev.GeneratedTime(),
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("check previous export: %w", err)
	}

	series := s.ChartSeries()
	if len(series) == 0 {
		return nil, ErrNoData
	}
	if viz == render.VizHeatmap && len(s.HeatmapData()) == 0 {
		return nil, ErrNoData
	}

	rec := &models.MonthlyExport{
		Month:       month,
		TableTitle:  tbl.Title,
		ColumnName:  column,
		ChartData:   series,
		GeneratedAt: now.UnixMilli(),
	}
	if err := e.Store.SaveExport(ctx, rec); err != nil {
		return nil, fmt.Errorf("record export: %w", err)
	}
	e.logger().Info("export recorded", "month", month, "table", tbl.Title, "column", column, "viz", viz, "points", len(series))
	return rec, nil
}

// Render draws the session's current visualization as PNG. Chart styles draw
// the recorded chart data; heatmap draws the session's heatmap data.
func (e *Exporter) Render(w io.Writer, s *Session, rec *models.MonthlyExport, viz string) error {
	viz, err := render.ParseViz(viz)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	switch viz {
	case render.VizHeatmap:
		err = render.Heatmap(w, s.HeatmapData())
	default:
		err = render.Chart(w, rec.ChartData, rec.ColumnName, viz)
	}
	if err != nil {
		e.logger().Error("failed to render visualization", "viz", viz, "table", rec.TableTitle, "column", rec.ColumnName, "err", err)
		return ErrRenderFailed
	}
	return nil
}

// Filename returns the image filename for rec.
func (e *Exporter) Filename(rec *models.MonthlyExport, viz string) string {
	if v, err := render.ParseViz(viz); err == nil {
		viz = v
	}
	return render.Filename(rec.TableTitle, rec.ColumnName, viz, e.now())
}

// History lists every recorded export.
func (e *Exporter) History(ctx context.Context) ([]*models.MonthlyExport, error) {
	return e.Store.ListExports(ctx)
}

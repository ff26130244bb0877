// ABOUTME: Chart rendering of a date series: line, bar, area, scatter and step.
// ABOUTME: All styles share the grid, axes and legend; x positions follow date order.
package render

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/harperreed/calyra/internal/models"
)

const (
	chartWidth   = 800
	chartHeight  = 500
	plotLeft     = 70
	plotRight    = 40
	plotTop      = 30
	plotBottom   = 90
	yTicks       = 5
	dateLabelGap = 12
)

// LineChart writes a line chart of series as PNG. The legend names column.
func LineChart(w io.Writer, series []models.DataPoint, column string) error {
	return Chart(w, series, column, VizGraph)
}

// BarChart writes a bar chart of series as PNG with one bar per date.
func BarChart(w io.Writer, series []models.DataPoint, column string) error {
	return Chart(w, series, column, VizBar)
}

// Chart writes series as PNG in the chart style named by viz.
func Chart(w io.Writer, series []models.DataPoint, column, viz string) error {
	if len(series) == 0 {
		return ErrEmpty
	}
	if !IsChart(viz) {
		return fmt.Errorf("%q is not a chart style", viz)
	}

	img := newCanvas(chartWidth, chartHeight)
	p := newPlot(series, viz == VizBar)

	p.drawGrid(img)
	switch viz {
	case VizBar:
		p.drawBars(img)
	case VizArea:
		p.drawArea(img)
		p.drawLine(img)
	case VizScatter:
		p.drawPoints(img, 5)
	case VizStep:
		p.drawSteps(img)
	default:
		p.drawLine(img)
		p.drawPoints(img, 4)
	}

	drawChartLegend(img, column, viz)
	return encode(w, img)
}

// plot maps series values and positions into the plot rectangle.
type plot struct {
	series         []models.DataPoint
	x0, x1, y0, y1 int
	lo, hi         float64
	bands          bool
}

func newPlot(series []models.DataPoint, bands bool) plot {
	lo, hi := yRange(series)
	return plot{
		series: series,
		x0:     plotLeft,
		x1:     chartWidth - plotRight,
		y0:     plotTop,
		y1:     chartHeight - plotBottom,
		lo:     lo,
		hi:     hi,
		bands:  bands,
	}
}

func (p plot) yFor(v float64) int {
	return p.y1 - int(math.Round((v-p.lo)/(p.hi-p.lo)*float64(p.y1-p.y0)))
}

// xFor places point i. Bands center each point in an equal slot; otherwise
// the first and last points sit on the plot edges.
func (p plot) xFor(i int) int {
	n := len(p.series)
	if p.bands {
		return p.x0 + (2*i+1)*(p.x1-p.x0)/(2*n)
	}
	if n == 1 {
		return (p.x0 + p.x1) / 2
	}
	return p.x0 + i*(p.x1-p.x0)/(n-1)
}

func (p plot) drawGrid(img *image.RGBA) {
	// horizontal grid and y labels
	for i := 0; i <= yTicks; i++ {
		v := p.lo + (p.hi-p.lo)*float64(i)/yTicks
		y := p.yFor(v)
		drawDashed(img, p.x0, y, p.x1, y, gridColor)
		label := fmt.Sprintf("%.4g", v)
		drawText(img, p.x0-8-textWidth(label), y+4, faint, label)
	}

	// vertical grid and date labels, thinned so labels never overlap
	step := 1
	if maxLabels := (p.x1 - p.x0) / (textWidth("0000-00-00") + dateLabelGap); maxLabels > 0 && len(p.series) > maxLabels {
		step = (len(p.series) + maxLabels - 1) / maxLabels
	}
	for i := 0; i < len(p.series); i += step {
		x := p.xFor(i)
		drawDashed(img, x, p.y0, x, p.y1, gridColor)
		label := p.series[i].Date
		drawText(img, x-textWidth(label)/2, p.y1+20, faint, label)
	}

	// axes
	drawLine(img, p.x0, p.y1, p.x1, p.y1, 1, faint)
	drawLine(img, p.x0, p.y0, p.x0, p.y1, 1, faint)
}

func (p plot) drawLine(img *image.RGBA) {
	for i := 1; i < len(p.series); i++ {
		drawLine(img, p.xFor(i-1), p.yFor(p.series[i-1].Value), p.xFor(i), p.yFor(p.series[i].Value), 2, lineColor)
	}
}

func (p plot) drawPoints(img *image.RGBA, r int) {
	for i, pt := range p.series {
		fillCircle(img, p.xFor(i), p.yFor(pt.Value), r, lineColor)
	}
}

// drawBars draws each bar from the zero line to its value.
func (p plot) drawBars(img *image.RGBA) {
	slot := (p.x1 - p.x0) / len(p.series)
	half := max(slot*4/10, 1)
	base := p.yFor(0)
	for i, pt := range p.series {
		x := p.xFor(i)
		y := p.yFor(pt.Value)
		fillRect(img, image.Rect(x-half, min(y, base), x+half, max(y, base)+1), lineColor)
	}
}

// drawArea fills between the line and the zero line, one pixel column at a
// time.
func (p plot) drawArea(img *image.RGBA) {
	base := p.yFor(0)
	if len(p.series) == 1 {
		x, y := p.xFor(0), p.yFor(p.series[0].Value)
		fillRect(img, image.Rect(x-1, min(y, base), x+2, max(y, base)+1), areaFill)
		return
	}
	for i := 1; i < len(p.series); i++ {
		xa, xb := p.xFor(i-1), p.xFor(i)
		ya, yb := float64(p.yFor(p.series[i-1].Value)), float64(p.yFor(p.series[i].Value))
		for x := xa; x <= xb; x++ {
			t := 0.0
			if xb > xa {
				t = float64(x-xa) / float64(xb-xa)
			}
			y := int(math.Round(ya + (yb-ya)*t))
			fillRect(img, image.Rect(x, min(y, base), x+1, max(y, base)+1), areaFill)
		}
	}
}

// drawSteps holds each value until the next date, then jumps.
func (p plot) drawSteps(img *image.RGBA) {
	for i := 1; i < len(p.series); i++ {
		xa, xb := p.xFor(i-1), p.xFor(i)
		ya, yb := p.yFor(p.series[i-1].Value), p.yFor(p.series[i].Value)
		drawLine(img, xa, ya, xb, ya, 2, lineColor)
		drawLine(img, xb, ya, xb, yb, 2, lineColor)
	}
	p.drawPoints(img, 3)
}

// yRange returns the axis bounds: zero is always included and a flat series
// gets a unit range.
func yRange(series []models.DataPoint) (lo, hi float64) {
	for _, p := range series {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func drawChartLegend(img *image.RGBA, column, viz string) {
	name := fitText(column, chartWidth/2)
	total := 24 + textWidth(name)
	x := (chartWidth - total) / 2
	y := chartHeight - 28
	switch viz {
	case VizBar, VizArea:
		fillRect(img, image.Rect(x+2, y-6, x+14, y+6), lineColor)
	case VizScatter:
		fillCircle(img, x+8, y, 4, lineColor)
	default:
		drawLine(img, x, y, x+16, y, 2, lineColor)
		fillCircle(img, x+8, y, 4, lineColor)
	}
	drawText(img, x+24, y+4, ink, name)
}

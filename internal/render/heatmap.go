// ABOUTME: Calendar heatmap rendering: one month grid per month with data.
// ABOUTME: Cells shade from light to dark blue in HSL as values rise.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/harperreed/calyra/internal/values"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	cellSize      = 30
	cellGap       = 2
	pad           = 16
	monthHeader   = 22
	weekdayHeader = 16
	monthGap      = 16
	legendHeight  = 30
)

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// Shade returns the heatmap colour for a normalized value n in [0,1]:
// HSL(210°, 100%, 90% - n*60%).
func Shade(n float64) color.RGBA {
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	r, g, b := colorful.Hsl(210, 1, 0.90-n*0.60).RGB255()
	return color.RGBA{r, g, b, 0xff}
}

// Heatmap writes a calendar heatmap of data (date "YYYY-MM-DD" to value) as
// PNG. Every month that has at least one value gets a grid.
func Heatmap(w io.Writer, data map[string]float64) error {
	days := make(map[string]float64, len(data))
	monthSet := map[time.Time]bool{}
	for k, v := range data {
		d, err := time.Parse("2006-01-02", k)
		if err != nil {
			continue
		}
		days[d.Format("2006-01-02")] = v
		monthSet[time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)] = true
	}
	if len(days) == 0 {
		return ErrEmpty
	}

	months := make([]time.Time, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	lo, hi := values.Bounds(data)

	blockW := 7*cellSize + 6*cellGap
	width := 2*pad + blockW
	height := pad
	for _, m := range months {
		height += monthBlockHeight(m) + monthGap
	}
	height += legendHeight + pad

	img := newCanvas(width, height)
	y := pad
	for _, m := range months {
		drawMonth(img, pad, y, m, days, lo, hi)
		y += monthBlockHeight(m) + monthGap
	}
	drawLegend(img, pad, y, lo, hi)

	return encode(w, img)
}

func weekRows(m time.Time) int {
	offset := (int(m.Weekday()) + 6) % 7
	daysIn := m.AddDate(0, 1, -1).Day()
	return (offset + daysIn + 6) / 7
}

func monthBlockHeight(m time.Time) int {
	return monthHeader + weekdayHeader + weekRows(m)*(cellSize+cellGap) - cellGap
}

func drawMonth(img *image.RGBA, x, y int, m time.Time, days map[string]float64, lo, hi float64) {
	drawText(img, x, y+13, ink, m.Format("January 2006"))

	top := y + monthHeader
	for i, wd := range weekdays {
		cx := x + i*(cellSize+cellGap) + (cellSize-textWidth(wd))/2
		drawText(img, cx, top+11, faint, wd)
	}
	top += weekdayHeader

	offset := (int(m.Weekday()) + 6) % 7
	daysIn := m.AddDate(0, 1, -1).Day()
	for day := 1; day <= daysIn; day++ {
		slot := offset + day - 1
		cx := x + (slot%7)*(cellSize+cellGap)
		cy := top + (slot/7)*(cellSize+cellGap)
		cell := image.Rect(cx, cy, cx+cellSize, cy+cellSize)

		label := ink
		if v, ok := days[m.AddDate(0, 0, day-1).Format("2006-01-02")]; ok {
			n := values.Normalize(v, lo, hi)
			fillRect(img, cell, Shade(n))
			if n > 0.5 {
				label = white
			}
		} else {
			fillRect(img, cell, emptyCell)
		}
		drawText(img, cx+3, cy+12, label, strconv.Itoa(day))
	}
}

func drawLegend(img *image.RGBA, x, y int, lo, hi float64) {
	loLabel := fmt.Sprintf("%.4g", lo)
	drawText(img, x, y+14, faint, loLabel)
	sx := x + textWidth(loLabel) + 6
	for i := 0; i < 5; i++ {
		r := image.Rect(sx, y+4, sx+14, y+18)
		fillRect(img, r, Shade(float64(i)/4))
		sx += 16
	}
	drawText(img, sx+4, y+14, faint, fmt.Sprintf("%.4g", hi))
}

// ABOUTME: PNG rendering shared helpers: visualization types, filenames, text and lines.
// ABOUTME: Images are drawn at 1x and upscaled 2x before encoding.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Visualization types. Every type but VizHeatmap is a chart of the series.
const (
	VizGraph   = "graph"
	VizBar     = "bar"
	VizArea    = "area"
	VizScatter = "scatter"
	VizStep    = "step"
	VizHeatmap = "heatmap"
)

// Vizs lists every visualization type.
var Vizs = []string{VizGraph, VizBar, VizArea, VizScatter, VizStep, VizHeatmap}

// Scale is the factor between the drawn image and the encoded PNG.
const Scale = 2

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("nothing to draw")

var (
	white     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ink       = color.RGBA{0x21, 0x25, 0x29, 0xff}
	faint     = color.RGBA{0x86, 0x8e, 0x96, 0xff}
	gridColor = color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	lineColor = color.RGBA{0x26, 0x84, 0xff, 0xff}
	areaFill  = color.RGBA{0x7d, 0xb5, 0xff, 0xff}
	emptyCell = color.RGBA{0xf1, 0xf3, 0xf5, 0xff}
)

var face = basicfont.Face7x13

// ParseViz validates a visualization type name.
func ParseViz(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case VizGraph, "chart", "line":
		return VizGraph, nil
	case VizBar, VizArea, VizScatter, VizStep, VizHeatmap:
		return v, nil
	}
	return "", fmt.Errorf("unknown visualization %q (want one of %s)", s, strings.Join(Vizs, ", "))
}

// IsChart reports whether viz is drawn from the chart series.
func IsChart(viz string) bool {
	switch viz {
	case VizGraph, VizBar, VizArea, VizScatter, VizStep:
		return true
	}
	return false
}

// Filename returns "{title}_{column}_{viz}_{YYYY-MM-DD}.png" for an image
// generated at t. Path separators in the title or column become "-".
func Filename(title, column, viz string, t time.Time) string {
	clean := strings.NewReplacer("/", "-", `\`, "-")
	return fmt.Sprintf("%s_%s_%s_%s.png",
		clean.Replace(title), clean.Replace(column), viz, t.UTC().Format("2006-01-02"))
}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	return img
}

// encode upscales img by Scale and writes it as PNG.
func encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*Scale, b.Dy()*Scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// drawText writes s with its baseline at y.
func drawText(img draw.Image, x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(face, s).Round()
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawLine draws a Bresenham line, thick pixels wide.
func drawLine(img *image.RGBA, x0, y0, x1, y1, thick int, c color.RGBA) {
	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		stamp(img, x0, y0, thick, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// drawDashed draws a horizontal or vertical 3-on 3-off dashed line.
func drawDashed(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if y0 == y1 {
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			if (x-x0)%6 < 3 {
				img.SetRGBA(x, y0, c)
			}
		}
		return
	}
	for y := min(y0, y1); y <= max(y0, y1); y++ {
		if (y-y0)%6 < 3 {
			img.SetRGBA(x0, y, c)
		}
	}
}

func fillCircle(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				img.SetRGBA(cx+x, cy+y, c)
			}
		}
	}
}

func stamp(img *image.RGBA, x, y, size int, c color.RGBA) {
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			img.SetRGBA(x+dx, y+dy, c)
		}
	}
}

// fitText truncates s to at most limit pixels wide.
func fitText(s string, limit int) string {
	if textWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && textWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

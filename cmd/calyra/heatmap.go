// ABOUTME: CLI commands that print a column as a calendar heatmap or a bar chart.
// ABOUTME: Terminal views of the same projections the PNG export draws.
package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/calyra/internal/models"
	"github.com/harperreed/calyra/internal/tracker"
	"github.com/harperreed/calyra/internal/values"
	"github.com/spf13/cobra"
)

// shades run from lightest to darkest.
var shades = []string{"░░", "▒▒", "▓▓", "██"}

const chartBarWidth = 40

var heatmapCmd = &cobra.Command{
	Use:     "heatmap <table> <column>",
	Aliases: []string{"hm"},
	Short:   "Show a column as a calendar heatmap",
	Long: `Show a numeric column as a calendar heatmap, one block per month.

Only columns whose values are all numbers or fractions (like "10/10") can be
shown. Fractions are drawn as their quotient. Darker cells are higher values;
days without a value show their day number.

EXAMPLES:

  calyra heatmap Workouts Reps
  calyra hm 1 Sleep`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sessionFor(args[0])
		if err != nil {
			return err
		}
		if _, err := s.ToggleHeatmap(args[1]); err != nil {
			return err
		}
		if s.HeatmapColumn() == "" {
			return fmt.Errorf("the Date column cannot be shown as a heatmap")
		}

		data := s.HeatmapData()
		if len(data) == 0 {
			fmt.Println("No values to show.")
			return nil
		}
		printHeatmap(data)
		return nil
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart <table> <column>",
	Short: "Show a column as a bar chart",
	Long: `Show a column as one bar per date, oldest first.

Values that are not numbers or fractions count as 0.

EXAMPLES:

  calyra chart Workouts Reps`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sessionFor(args[0])
		if err != nil {
			return err
		}
		series, err := s.ChartSeriesFor(args[1])
		if err != nil {
			return err
		}
		if len(series) == 0 {
			fmt.Println("No rows to chart.")
			return nil
		}
		printChart(series)
		return nil
	},
}

func sessionFor(ref string) (*tracker.Session, error) {
	i, _, err := lookupTable(ref)
	if err != nil {
		return nil, err
	}
	s := tracker.NewSession(tr)
	s.SelectTable(i)
	return s, nil
}

func printHeatmap(data map[string]float64) {
	lo, hi := values.Bounds(data)

	months := map[string]time.Time{}
	for k := range data {
		d, err := time.Parse(models.DateFormat, k)
		if err != nil {
			continue
		}
		m := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		months[m.Format(models.MonthFormat)] = m
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	blue := color.New(color.FgBlue)

	for _, k := range keys {
		m := months[k]
		bold.Println(m.Format("January 2006"))
		faint.Println("Mo Tu We Th Fr Sa Su")

		offset := (int(m.Weekday()) + 6) % 7
		days := m.AddDate(0, 1, -1).Day()
		var line strings.Builder
		line.WriteString(strings.Repeat("   ", offset))
		for day := 1; day <= days; day++ {
			key := m.AddDate(0, 0, day-1).Format(models.DateFormat)
			if v, ok := data[key]; ok {
				line.WriteString(blue.Sprint(shadeOf(values.Normalize(v, lo, hi))))
			} else {
				line.WriteString(faint.Sprintf("%2d", day))
			}
			line.WriteString(" ")
			if (offset+day)%7 == 0 {
				fmt.Println(strings.TrimRight(line.String(), " "))
				line.Reset()
			}
		}
		if line.Len() > 0 {
			fmt.Println(strings.TrimRight(line.String(), " "))
		}
		fmt.Println()
	}

	fmt.Printf("%s %s %s\n",
		faint.Sprint(formatValue(lo)),
		blue.Sprint(strings.Join(shades, "")),
		faint.Sprint(formatValue(hi)))
}

// shadeOf maps n in [0,1] to one of the shade glyphs.
func shadeOf(n float64) string {
	i := int(math.Floor(n * float64(len(shades))))
	if i < 0 {
		i = 0
	}
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}

func printChart(series []models.DataPoint) {
	peak := 0.0
	for _, p := range series {
		peak = max(peak, math.Abs(p.Value))
	}

	faint := color.New(color.Faint)
	blue := color.New(color.FgBlue)
	red := color.New(color.FgRed)
	for _, p := range series {
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(p.Value) / peak * chartBarWidth))
		}
		bar := blue
		if p.Value < 0 {
			bar = red
		}
		fmt.Printf("%s %s %s\n",
			faint.Sprint(p.Date),
			bar.Sprint(strings.Repeat("█", n))+strings.Repeat(" ", chartBarWidth-n),
			formatValue(p.Value))
	}
}

func formatValue(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func init() {
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(chartCmd)
}

// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Bar is one labelled value in a bar chart.
type Bar struct {
	Label string
	Value float64
}

const (
	minPlotWidth        = 10
	barSeparator        = " │ "
	barRune             = "█"
	terminalWidthBackup = 80
)

var barColors = []lipgloss.Color{"6", "5", "3", "2", "4", "1"}

// PlotBars renders a horizontal bar chart scaled to the largest value.
// A width of zero fits the chart to the terminal.
func PlotBars(w io.Writer, title string, bars []Bar, width int, forceColor bool) error {
	if len(bars) == 0 {
		return nil
	}
	labelWidth := 0
	valueWidth := 0
	maxVal := 0.0
	for _, b := range bars {
		labelWidth = max(labelWidth, displayWidth(b.Label))
		valueWidth = max(valueWidth, len(formatBarValue(b.Value)))
		maxVal = max(maxVal, b.Value)
	}
	if width <= 0 {
		width = terminalWidth()
	}
	plotWidth := PlotWidthFor(width, labelWidth+valueWidth+1)

	useColor := shouldUseColor(w, forceColor)
	renderer := lipgloss.NewRenderer(w)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for i, b := range bars {
		n := 0
		if maxVal > 0 && b.Value > 0 {
			n = max(1, int(math.Round(b.Value/maxVal*float64(plotWidth))))
		}
		bar := strings.Repeat(barRune, n)
		if useColor && n > 0 {
			bar = renderer.NewStyle().Foreground(barColors[i%len(barColors)]).Render(bar)
		}
		line := fmt.Sprintf("%s%s%s %s", padCell(b.Label, labelWidth, false), barSeparator, bar, formatBarValue(b.Value))
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// PlotWidthFor computes the bar area that fits within the total available width
// next to labels of the given width.
func PlotWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(minPlotWidth, totalWidth-labelWidth-displayWidth(barSeparator)-1)
}

func formatBarValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

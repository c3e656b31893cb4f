package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotBars(t *testing.T) {
	var buf bytes.Buffer
	err := PlotBars(&buf, "Shapes", []Bar{
		{Label: "migration", Value: 4},
		{Label: "insertion", Value: 2},
		{Label: "deletion", Value: 0},
	}, 41, false)
	if err != nil {
		t.Fatalf("PlotBars failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || lines[0] != "Shapes" {
		t.Fatalf("unexpected output %q", buf.String())
	}
	full := strings.Count(lines[1], barRune)
	half := strings.Count(lines[2], barRune)
	if full != PlotWidthFor(41, len("migration")+2) || half != full/2 {
		t.Fatalf("unexpected bar lengths %d and %d", full, half)
	}
	if strings.Contains(lines[3], barRune) || !strings.HasSuffix(lines[3], " 0") {
		t.Fatalf("zero bar should be empty: %q", lines[3])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("unexpected colour codes in a buffer")
	}
}

func TestPlotBarsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotBars(&buf, "none", nil, 40, false); err != nil || buf.Len() != 0 {
		t.Fatalf("expected no output, got %q/%v", buf.String(), err)
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80, 10); got != 80-10-displayWidth(barSeparator)-1 {
		t.Fatalf("unexpected width %d", got)
	}
	if got := PlotWidthFor(0, 10); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12, 10); got != minPlotWidth {
		t.Fatalf("expected min width for narrow terminals, got %d", got)
	}
}

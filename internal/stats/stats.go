// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/elisaF/typing-classification/internal/model"
)

const sparkChars = " .:-=+*#%@"

const trendWindow = 3

// Mean returns sum/count, or 0 when count is zero.
func Mean(sum float64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return sum / float64(count)
}

// Share returns part/total as a percentage.
func Share(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints run totals and why rows were dropped.
func RenderSummary(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	var traces, records int
	var drops model.DropCounts
	for _, r := range runs {
		traces += r.Traces
		records += r.Records
		drops.Total += r.Drops.Total
		drops.NoError += r.Drops.NoError
		drops.BlankTyped += r.Drops.BlankTyped
		drops.Misaligned += r.Drops.Misaligned
		drops.TooLong += r.Drops.TooLong
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", len(runs)),
		fmt.Sprintf("Traces: %d", traces),
		fmt.Sprintf("Error records: %d", records),
	}
	if drops.Total > 0 {
		lines = append(lines,
			fmt.Sprintf("Rows classified: %d of %d (%.2f%%)", drops.Kept(), drops.Total, Share(drops.Kept(), drops.Total)),
			fmt.Sprintf("Dropped: no error %d, blank %d, misaligned %d, too long %d",
				drops.NoError, drops.BlankTyped, drops.Misaligned, drops.TooLong),
		)
	}
	if len(runs) > 1 {
		perRun := make([]float64, len(runs))
		for i, r := range runs {
			perRun[i] = float64(r.Records)
		}
		lines = append(lines, "Records per run: "+Sparkline(perRun))
	}
	var kept []float64
	for _, r := range runs {
		if r.Drops.Total > 0 {
			kept = append(kept, Share(r.Drops.Kept(), r.Drops.Total))
		}
	}
	if len(kept) > 1 {
		lines = append(lines, fmt.Sprintf("Kept share trend (avg %d): %s", trendWindow, Sparkline(MovingAverage(kept, trendWindow))))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderShapeTable prints one row per error shape in a fixed order.
func RenderShapeTable(w io.Writer, aggs []model.ShapeAggregate) error {
	byShape := make(map[model.Shape]model.ShapeAggregate, len(aggs))
	total := 0
	for _, agg := range aggs {
		byShape[agg.Shape] = agg
		total += agg.Count
	}
	if total == 0 {
		_, err := fmt.Fprintln(w, "No classified errors found.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Error Shapes"); err != nil {
		return err
	}
	headers := []string{"Shape", "Count", "Share", "Mean IKI", "Mean Edit Dist", "Context Exhausted"}
	rows := make([][]string, 0, len(model.Shapes))
	for _, shape := range model.Shapes {
		agg := byShape[shape]
		rows = append(rows, []string{
			string(shape),
			fmt.Sprintf("%d", agg.Count),
			fmt.Sprintf("%.2f%%", Share(agg.Count, total)),
			fmt.Sprintf("%.1f", Mean(agg.IKISum, agg.IKICount)),
			fmt.Sprintf("%.2f", Mean(float64(agg.EditDistSum), agg.Count)),
			fmt.Sprintf("%d", agg.ExhaustedCount),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCharTable prints the most mistyped intended characters.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate, top int) error {
	picked := TopMistypedChars(aggs, top)
	if len(picked) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Most Mistyped Characters"); err != nil {
		return err
	}
	slow := SelectSlowChars(aggs, 3)
	headers := []string{"Char", "Errors", "Mean IKI", ""}
	rows := make([][]string, 0, len(picked))
	for _, agg := range picked {
		mark := ""
		if _, ok := slow[agg.Char]; ok {
			mark = "slow"
		}
		rows = append(rows, []string{
			charLabel(agg.Char),
			fmt.Sprintf("%d", agg.Errors),
			fmt.Sprintf("%.1f", Mean(agg.IKISum, agg.IKICount)),
			mark,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func charLabel(ch string) string {
	if ch == " " {
		return "<space>"
	}
	return ch
}

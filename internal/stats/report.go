// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"io"

	"github.com/elisaF/typing-classification/internal/model"
	"github.com/elisaF/typing-classification/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs       []model.RunAggregate
	FeatureIDs []int64
	Shapes     []model.ShapeAggregate
	Chars      []model.CharAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.ReportConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	featureIDs := runIDs(runs, model.RunFeatures)
	shapes, err := st.ShapeAggregates(ctx, featureIDs)
	if err != nil {
		return Report{}, err
	}
	chars, err := st.CharAggregates(ctx, featureIDs)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Runs:       runs,
		FeatureIDs: featureIDs,
		Shapes:     shapes,
		Chars:      chars,
	}, nil
}

// RenderOptions controls report output.
type RenderOptions struct {
	Top        int
	Width      int
	ForceColor bool
}

// Render writes the full text report.
func Render(w io.Writer, report Report, opts RenderOptions) error {
	if err := RenderSummary(w, report.Runs); err != nil {
		return err
	}
	if len(report.FeatureIDs) == 0 {
		return nil
	}
	if err := RenderShapeTable(w, report.Shapes); err != nil {
		return err
	}
	if err := PlotBars(w, "Shape Distribution", ShapeBars(report.Shapes), opts.Width, opts.ForceColor); err != nil {
		return err
	}
	return RenderCharTable(w, report.Chars, opts.Top)
}

// ShapeBars orders shape counts for plotting.
func ShapeBars(aggs []model.ShapeAggregate) []Bar {
	counts := make(map[model.Shape]int, len(aggs))
	for _, agg := range aggs {
		counts[agg.Shape] += agg.Count
	}
	bars := make([]Bar, 0, len(model.Shapes))
	for _, shape := range model.Shapes {
		bars = append(bars, Bar{Label: string(shape), Value: float64(counts[shape])})
	}
	return bars
}

func runIDs(runs []model.RunAggregate, kind string) []int64 {
	ids := make([]int64, 0, len(runs))
	for _, r := range runs {
		if r.Kind == kind {
			ids = append(ids, r.RunID)
		}
	}
	return ids
}

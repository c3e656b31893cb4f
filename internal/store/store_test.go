package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/elisaF/typing-classification/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "db", "typeclass.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

func feature(id string, shape model.Shape, iki float64, intended string, exhausted bool) model.FeatureRow {
	fr := model.FeatureRow{
		WordPairRow: model.WordPairRow{
			ID:                 id,
			Typed:              "teh",
			Intended:           intended,
			ErrorContext:       "teh cat",
			Position:           1,
			ErrorStartTyped:    1,
			ErrorStartIntended: 1,
		},
		Shape:            shape,
		EditDistance:     1,
		ContextExhausted: exhausted,
	}
	if iki > 0 {
		fr.IKI = model.IKI{Value: iki, Valid: true}
	}
	return fr
}

func TestRunRoundTrip(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := st.InsertRun(ctx, model.RunStats{Kind: model.RunAlign, StartedAt: start, EndedAt: start, Input: "log.csv", Language: "english"})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	w := st.Writer(id)
	records := []model.ErrorRecord{
		{ID: "1a-7-0", RawTyped: "teh", Intended: "the", Position: 0, RawContext: "teh", IntendedContext: "the"},
		{ID: "1a-7-1", RawTyped: "cta", Intended: "cat", Position: 4, RawContext: "teh}cta", IntendedContext: "the}cat", IKI: model.IKI{Value: 90, Valid: true}},
	}
	for _, rec := range records {
		if err := w.WriteRecord(ctx, rec); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	final := model.RunStats{EndedAt: start.Add(time.Minute), Traces: 3, Records: 2}
	if err := st.FinishRun(ctx, id, final); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := st.ListRecords(ctx, id)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
		t.Fatalf("unexpected records %+v", got)
	}

	runs, err := st.ListRuns(ctx, model.ReportConfig{Kind: model.RunAlign})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Traces != 3 || runs[0].Records != 2 || !runs[0].EndedAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected runs %+v", runs)
	}
	latest, err := st.LatestRun(ctx, model.RunAlign)
	if err != nil || latest != id {
		t.Fatalf("latest run = %d/%v, want %d", latest, err, id)
	}
	if none, err := st.LatestRun(ctx, model.RunFeatures); err != nil || none != 0 {
		t.Fatalf("expected no features run, got %d/%v", none, err)
	}
}

func TestFeatureAggregates(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := st.InsertRun(ctx, model.RunStats{Kind: model.RunFeatures, StartedAt: now, EndedAt: now})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	w := st.Writer(id)
	rows := []model.FeatureRow{
		feature("a", model.ShapeMigration, 100, "the", false),
		feature("b", model.ShapeMigration, 0, "the", true),
		feature("c", model.ShapeSubstitution, 50, "cat", false),
	}
	for _, fr := range rows {
		if err := w.WriteFeature(ctx, fr); err != nil {
			t.Fatalf("write feature: %v", err)
		}
	}
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	shapes, err := st.ShapeAggregates(ctx, []int64{id})
	if err != nil {
		t.Fatalf("shapes: %v", err)
	}
	byShape := map[model.Shape]model.ShapeAggregate{}
	for _, agg := range shapes {
		byShape[agg.Shape] = agg
	}
	mig := byShape[model.ShapeMigration]
	if mig.Count != 2 || mig.IKICount != 1 || mig.IKISum != 100 || mig.ExhaustedCount != 1 || mig.EditDistSum != 2 {
		t.Fatalf("unexpected migration aggregate %+v", mig)
	}
	if byShape[model.ShapeSubstitution].Count != 1 {
		t.Fatalf("unexpected substitution aggregate %+v", byShape[model.ShapeSubstitution])
	}

	chars, err := st.CharAggregates(ctx, []int64{id})
	if err != nil {
		t.Fatalf("chars: %v", err)
	}
	byChar := map[string]model.CharAggregate{}
	for _, agg := range chars {
		byChar[agg.Char] = agg
	}
	if byChar["h"].Errors != 2 || byChar["a"].Errors != 1 || byChar["a"].IKISum != 50 {
		t.Fatalf("unexpected char aggregates %+v", chars)
	}

	filtered, err := st.ListFeatures(ctx, id, model.ShapeMigration)
	if err != nil {
		t.Fatalf("list features: %v", err)
	}
	if len(filtered) != 2 || filtered[0].ID != "a" || filtered[1].IKI.Valid || !filtered[1].ContextExhausted {
		t.Fatalf("unexpected filtered rows %+v", filtered)
	}
	all, err := st.ListFeatures(ctx, id, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d/%v", len(all), err)
	}
}

func TestEmptyQueries(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	if aggs, err := st.ShapeAggregates(ctx, nil); err != nil || aggs != nil {
		t.Fatalf("expected nil shapes, got %v/%v", aggs, err)
	}
	if aggs, err := st.CharAggregates(ctx, nil); err != nil || aggs != nil {
		t.Fatalf("expected nil chars, got %v/%v", aggs, err)
	}
	if err := st.InsertFeatures(ctx, 1, nil); err != nil {
		t.Fatalf("empty insert: %v", err)
	}
}

func TestListRunsLast(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i := range 3 {
		at := now.Add(time.Duration(i) * time.Hour)
		if _, err := st.InsertRun(ctx, model.RunStats{Kind: model.RunFeatures, StartedAt: at, EndedAt: at}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	runs, err := st.ListRuns(ctx, model.ReportConfig{Last: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != 2 || runs[1].RunID != 3 {
		t.Fatalf("unexpected runs %+v", runs)
	}
	since := now.Add(90 * time.Minute)
	runs, err = st.ListRuns(ctx, model.ReportConfig{Since: &since})
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 run since %v, got %d/%v", since, len(runs), err)
	}
}

func TestInsertRecordKeepsSequence(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	id, err := st.InsertRun(ctx, model.RunStats{Kind: model.RunAlign, StartedAt: now, EndedAt: now})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if err := st.InsertRecord(ctx, id, 1, model.ErrorRecord{ID: "1a-7-1", RawTyped: "cta", Intended: "cat"}); err != nil {
		t.Fatalf("insert seq 1: %v", err)
	}
	if err := st.InsertRecord(ctx, id, 0, model.ErrorRecord{ID: "1a-7-0", RawTyped: "teh", Intended: "the"}); err != nil {
		t.Fatalf("insert seq 0: %v", err)
	}
	if err := st.InsertRecord(ctx, id, 1, model.ErrorRecord{ID: "dup"}); err == nil {
		t.Fatalf("expected duplicate seq to fail")
	}
	got, err := st.ListRecords(ctx, id)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1a-7-0" || got[1].ID != "1a-7-1" {
		t.Fatalf("unexpected order %+v", got)
	}
}

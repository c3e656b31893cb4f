package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/elisaF/typing-classification/internal/model"
	"github.com/elisaF/typing-classification/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "typeclass.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	start := time.Unix(0, 0).UTC()
	alignID, err := st.InsertRun(ctx, model.RunStats{Kind: model.RunAlign, StartedAt: start, EndedAt: start, Traces: 4, Records: 3})
	if err != nil {
		t.Fatalf("insert align run: %v", err)
	}
	featID, err := st.InsertRun(ctx, model.RunStats{
		Kind:      model.RunFeatures,
		StartedAt: start,
		EndedAt:   start.Add(time.Minute),
		Drops:     model.DropCounts{Total: 3, NoError: 1},
	})
	if err != nil {
		t.Fatalf("insert features run: %v", err)
	}
	rows := []model.FeatureRow{
		{WordPairRow: model.WordPairRow{ID: "1-1-0", Typed: "teh", Intended: "the", ErrorStartTyped: 1, ErrorStartIntended: 1, IKI: model.IKI{Value: 120, Valid: true}}, Shape: model.ShapeMigration, EditDistance: 1},
		{WordPairRow: model.WordPairRow{ID: "1-1-1", Typed: "cst", Intended: "cat", ErrorStartTyped: 1, ErrorStartIntended: 1}, Shape: model.ShapeSubstitution, EditDistance: 1},
	}
	if err := st.InsertFeatures(ctx, featID, rows); err != nil {
		t.Fatalf("insert features: %v", err)
	}

	report, err := BuildReport(ctx, st, model.ReportConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 || report.Runs[0].RunID != alignID {
		t.Fatalf("unexpected runs: %+v", report.Runs)
	}
	if len(report.FeatureIDs) != 1 || report.FeatureIDs[0] != featID {
		t.Fatalf("unexpected feature run ids: %v", report.FeatureIDs)
	}
	if len(report.Shapes) != 2 || len(report.Chars) != 2 {
		t.Fatalf("expected 2 shapes and 2 chars, got %+v / %+v", report.Shapes, report.Chars)
	}

	var buf bytes.Buffer
	if err := Render(&buf, report, RenderOptions{Top: 5, Width: 60}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Runs: 2", "Rows classified: 2 of 3", "Error Shapes", "Shape Distribution", "Most Mistyped Characters"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	alignOnly, err := BuildReport(ctx, st, model.ReportConfig{Kind: model.RunAlign})
	if err != nil {
		t.Fatalf("build align report: %v", err)
	}
	buf.Reset()
	if err := Render(&buf, alignOnly, RenderOptions{}); err != nil {
		t.Fatalf("render align: %v", err)
	}
	if strings.Contains(buf.String(), "Error Shapes") {
		t.Fatalf("align-only report must skip shape tables")
	}
}

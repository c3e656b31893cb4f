package features

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/elisaF/typing-classification/internal/classify"
	"github.com/elisaF/typing-classification/internal/keyboard"
	"github.com/elisaF/typing-classification/internal/model"
)

// recordingScorer returns 1/len and remembers what it was asked.
type recordingScorer struct {
	asked []string
	fail  error
}

func (r *recordingScorer) Prob(_ context.Context, chars string) (float64, error) {
	if r.fail != nil {
		return 0, r.fail
	}
	r.asked = append(r.asked, chars)
	return 1 / float64(len([]rune(chars))), nil
}

func buildRow(t *testing.T, typed, intended, sentence string, pos int) model.WordPairRow {
	t.Helper()
	row := model.WordPairRow{
		ID:              "1a-4-2",
		RawTyped:        typed,
		Typed:           typed,
		Intended:        intended,
		ErrorContext:    sentence,
		IntendedContext: sentence,
		Position:        pos,
		HasPosition:     true,
		IKI:             model.IKI{Value: 120, Valid: true},
	}
	classify.Locate(&row)
	return row
}

func TestAssemble(t *testing.T) {
	kb, err := keyboard.ForLanguage("english")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	scorer := &recordingScorer{}
	a := NewAssembler(kb, scorer, nil)

	row := buildRow(t, "teh", "the", "so teh cat", 3)
	fr, err := a.Assemble(context.Background(), row)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if fr.Shape != model.ShapeMigration || fr.LengthMisalignedTyped != 1 || fr.LengthMisalignedIntended != 0 {
		t.Fatalf("unexpected shape %s %d/%d", fr.Shape, fr.LengthMisalignedTyped, fr.LengthMisalignedIntended)
	}
	if fr.DiffLength != 0 || fr.EditDistance != 1 {
		t.Fatalf("unexpected diff/edit %d/%d", fr.DiffLength, fr.EditDistance)
	}
	// mistyped 'e' against following 'h'
	if fr.KeyboardTypedAfter != kb.Distance('e', 'h') {
		t.Fatalf("unexpected typed_after %v", fr.KeyboardTypedAfter)
	}
	if fr.KeyboardSame != kb.Distance('e', 'h') {
		t.Fatalf("unexpected same %v", fr.KeyboardSame)
	}
	if fr.KeyboardIntendedBefore2 != kb.Distance('h', ' ') {
		t.Fatalf("unexpected intended_before2 %v", fr.KeyboardIntendedBefore2)
	}
	if fr.SameHandAfter {
		t.Fatalf("h and e are on different hands")
	}
	if fr.NgramIntended.Unigram != 1 || fr.NgramIntended.Before[3] != 0.2 {
		t.Fatalf("unexpected intended n-grams %+v", fr.NgramIntended)
	}
	if len(scorer.asked) != 18 {
		t.Fatalf("expected 18 lookups, got %d", len(scorer.asked))
	}
	if scorer.asked[1] != "te" || scorer.asked[2] != "eh" {
		t.Fatalf("unexpected first typed n-grams %q %q", scorer.asked[1], scorer.asked[2])
	}
	if fr.ContextExhausted {
		t.Fatalf("context should not be exhausted")
	}
}

func TestAssembleFlagsExhaustedContext(t *testing.T) {
	kb, _ := keyboard.ForLanguage("english")
	a := NewAssembler(kb, &recordingScorer{}, nil)
	fr, err := a.Assemble(context.Background(), buildRow(t, "th", "the", "th", 0))
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !fr.ContextExhausted {
		t.Fatalf("expected exhausted context")
	}
}

func TestAssembleScorerError(t *testing.T) {
	kb, _ := keyboard.ForLanguage("english")
	boom := errors.New("model gone")
	a := NewAssembler(kb, &recordingScorer{fail: boom}, nil)
	if _, err := a.Assemble(context.Background(), buildRow(t, "teh", "the", "teh", 0)); !errors.Is(err, boom) {
		t.Fatalf("expected scorer error, got %v", err)
	}
}

func TestRunWritesCSV(t *testing.T) {
	kb, _ := keyboard.ForLanguage("english")
	a := NewAssembler(kb, &recordingScorer{}, nil)
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	rows := []model.WordPairRow{
		buildRow(t, "teh", "the", "teh cat", 0),
		buildRow(t, "cot", "cat", "the cot", 4),
	}
	n, err := a.Run(context.Background(), rows, w)
	if err != nil || n != 2 {
		t.Fatalf("run: %d %v", n, err)
	}

	recs, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(recs))
	}
	if len(recs[0]) != len(Header()) || len(Header()) != 45 {
		t.Fatalf("unexpected header width %d", len(recs[0]))
	}
	if recs[1][0] != "1a-4-2" || recs[1][7] != "120" || recs[2][16] != "substitution" {
		t.Fatalf("unexpected rows %v", recs[1:])
	}
}

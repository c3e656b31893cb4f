package stats

import (
	"testing"

	"github.com/elisaF/typing-classification/internal/model"
)

func TestTopMistypedChars(t *testing.T) {
	aggs := []model.CharAggregate{
		{Char: "b", Errors: 3},
		{Char: "a", Errors: 3},
		{Char: "c", Errors: 5},
	}
	top := TopMistypedChars(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 chars, got %d", len(top))
	}
	if top[0].Char != "c" || top[1].Char != "a" {
		t.Fatalf("unexpected order: %v", top)
	}
	if aggs[0].Char != "b" {
		t.Fatalf("input must not be reordered")
	}
	if TopMistypedChars(aggs, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestSelectSlowChars(t *testing.T) {
	aggs := []model.CharAggregate{
		{Char: "a", IKISum: 300, IKICount: 3},
		{Char: "b", IKISum: 400, IKICount: 2},
		{Char: "c", Errors: 9},
	}
	slow := SelectSlowChars(aggs, 1)
	if _, ok := slow["b"]; !ok || len(slow) != 1 {
		t.Fatalf("expected b to be slowest, got %v", slow)
	}
	all := SelectSlowChars(aggs, 0)
	if _, ok := all["c"]; ok || len(all) != 2 {
		t.Fatalf("chars without intervals must be skipped, got %v", all)
	}
}

// Package features derives the feature vector of each classified error.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/elisaF/typing-classification/internal/classify"
	"github.com/elisaF/typing-classification/internal/keyboard"
	"github.com/elisaF/typing-classification/internal/langmodel"
	"github.com/elisaF/typing-classification/internal/model"
)

// Assembler combines classifier output with keyboard and language model lookups.
type Assembler struct {
	keyboard keyboard.Distance
	model    langmodel.Scorer
	logger   *slog.Logger
}

// NewAssembler returns an Assembler. A nil logger discards logs.
func NewAssembler(kb keyboard.Distance, scorer langmodel.Scorer, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{keyboard: kb, model: scorer, logger: logger}
}

// Assemble computes every feature column for row.
func (a *Assembler) Assemble(ctx context.Context, row model.WordPairRow) (model.FeatureRow, error) {
	var tr classify.Trace
	l := classify.NewLookup(row, &tr)
	typed, intended := []rune(row.Typed), []rune(row.Intended)
	sT, sI := row.ErrorStartTyped, row.ErrorStartIntended

	out := model.FeatureRow{
		WordPairRow:  row,
		DiffLength:   utf8.RuneCountInString(row.Intended) - utf8.RuneCountInString(row.Typed),
		EditDistance: classify.EditDistance(row),
	}
	length := classify.ClassifyLength(row, &tr)
	out.LengthMisalignedTyped = length.Typed
	out.LengthMisalignedIntended = length.Intended
	out.Shape = length.Shape

	out.KeyboardTypedAfter = a.distance(l.MistypedAndAfter(typed, sT, 1))
	out.KeyboardTypedBefore = a.distance(l.MistypedAndBefore(typed, sT, 1))
	out.KeyboardSame = a.keyboard.Distance(mistypedOrNext(l, typed, sT), mistypedOrNext(l, intended, sI))
	out.KeyboardIntendedAfter = a.distance(l.MistypedAndAfter(intended, sI, 1))
	out.KeyboardIntendedAfter2 = a.distance(l.MistypedAndAfter(intended, sI, 2))
	out.KeyboardIntendedBefore = a.distance(l.MistypedAndBefore(intended, sI, 1))
	out.KeyboardIntendedBefore2 = a.distance(l.MistypedAndBefore(intended, sI, 2))
	out.SameHandAfter = a.keyboard.SameHand(l.MistypedAndAfter(intended, sI, 1))
	out.SameHandBefore = a.keyboard.SameHand(l.MistypedAndBefore(intended, sI, 1))

	var err error
	if out.NgramTyped, err = a.ngrams(ctx, l, typed, sT); err != nil {
		return model.FeatureRow{}, fmt.Errorf("failed to score typed n-grams for %s: %w", row.ID, err)
	}
	if out.NgramIntended, err = a.ngrams(ctx, l, intended, sI); err != nil {
		return model.FeatureRow{}, fmt.Errorf("failed to score intended n-grams for %s: %w", row.ID, err)
	}

	out.ContextExhausted = tr.Exhausted()
	tr.LogTo(a.logger, row.ID)
	return out, nil
}

func (a *Assembler) distance(first, second rune) float64 {
	return a.keyboard.Distance(first, second)
}

// mistypedOrNext is the mistyped character, or the character after the word when the
// error is an omitted final letter.
func mistypedOrNext(l *classify.Lookup, word []rune, errorIndex int) rune {
	if len(word) == errorIndex {
		return l.CharAfter(0)
	}
	return word[errorIndex]
}

func (a *Assembler) ngrams(ctx context.Context, l *classify.Lookup, word []rune, errorIndex int) (model.NgramProbs, error) {
	var probs model.NgramProbs
	var err error
	if probs.Unigram, err = a.model.Prob(ctx, string(classify.Mistyped(word, errorIndex))); err != nil {
		return probs, err
	}
	for k := range probs.Before {
		if probs.Before[k], err = a.model.Prob(ctx, l.NgramBefore(word, errorIndex, k+1)); err != nil {
			return probs, err
		}
		if probs.After[k], err = a.model.Prob(ctx, l.NgramAfter(word, errorIndex, k+1)); err != nil {
			return probs, err
		}
	}
	return probs, nil
}

// FeatureSink receives assembled rows.
type FeatureSink interface {
	WriteFeature(ctx context.Context, row model.FeatureRow) error
}

// Run assembles every row and hands it to each sink in order.
func (a *Assembler) Run(ctx context.Context, rows []model.WordPairRow, sinks ...FeatureSink) (int, error) {
	n := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		fr, err := a.Assemble(ctx, row)
		if err != nil {
			return n, err
		}
		for _, sink := range sinks {
			if err := sink.WriteFeature(ctx, fr); err != nil {
				return n, fmt.Errorf("failed to write features for %s: %w", row.ID, err)
			}
		}
		n++
	}
	a.logger.Info("assembled features", "rows", n)
	return n, nil
}

package features

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/elisaF/typing-classification/internal/model"
)

// Header returns the feature table columns in order.
func Header() []string {
	h := []string{
		"ID", "Raw Typed", "Typed", "Intended", "Error Context", "Intended Context",
		"Position of word", "IKI_FOR_ERROR",
		"diff_length", "error_start_typed", "error_start_intended", "error_end_typed", "error_end_intended",
		"edit_distance", "length_misaligned_typed", "length_misaligned_intended", "error_shape",
		"context_exhausted",
		"keyboard_distance_typed_after", "keyboard_distance_typed_before", "keyboard_distance_same",
		"keyboard_distance_intended_after", "keyboard_distance_intended_after2",
		"keyboard_distance_intended_before", "keyboard_distance_intended_before2",
		"same_hand_after", "same_hand_before",
	}
	for _, side := range []string{"typed", "intended"} {
		h = append(h, "ngram1_prob_"+side)
		for n := 2; n <= 5; n++ {
			h = append(h, fmt.Sprintf("ngram%d_prob_%s_before", n, side))
		}
		for n := 2; n <= 5; n++ {
			h = append(h, fmt.Sprintf("ngram%d_prob_%s_after", n, side))
		}
	}
	return h
}

// Record renders a feature row in Header order.
func Record(fr model.FeatureRow) []string {
	pos := "NA"
	if fr.HasPosition {
		pos = strconv.Itoa(fr.Position)
	}
	rec := []string{
		fr.ID, fr.RawTyped, fr.Typed, fr.Intended, fr.ErrorContext, fr.IntendedContext,
		pos, fr.IKI.String(),
		strconv.Itoa(fr.DiffLength),
		strconv.Itoa(fr.ErrorStartTyped), strconv.Itoa(fr.ErrorStartIntended),
		strconv.Itoa(fr.ErrorEndTyped), strconv.Itoa(fr.ErrorEndIntended),
		strconv.Itoa(fr.EditDistance),
		strconv.Itoa(fr.LengthMisalignedTyped), strconv.Itoa(fr.LengthMisalignedIntended),
		string(fr.Shape),
		strconv.FormatBool(fr.ContextExhausted),
		num(fr.KeyboardTypedAfter), num(fr.KeyboardTypedBefore), num(fr.KeyboardSame),
		num(fr.KeyboardIntendedAfter), num(fr.KeyboardIntendedAfter2),
		num(fr.KeyboardIntendedBefore), num(fr.KeyboardIntendedBefore2),
		strconv.FormatBool(fr.SameHandAfter), strconv.FormatBool(fr.SameHandBefore),
	}
	for _, p := range []model.NgramProbs{fr.NgramTyped, fr.NgramIntended} {
		rec = append(rec, num(p.Unigram))
		for _, v := range p.Before {
			rec = append(rec, num(v))
		}
		for _, v := range p.After {
			rec = append(rec, num(v))
		}
	}
	return rec
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CSVWriter writes the feature table, flushing after each row.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter writes the header to w and returns the writer.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &CSVWriter{w: cw}, nil
}

func (c *CSVWriter) WriteFeature(_ context.Context, fr model.FeatureRow) error {
	if err := c.w.Write(Record(fr)); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

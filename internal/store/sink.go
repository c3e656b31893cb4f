package store

import (
	"context"

	"github.com/elisaF/typing-classification/internal/model"
)

// RunWriter appends records and feature rows to one stored run.
type RunWriter struct {
	store   *Store
	runID   int64
	records int
	pending []model.FeatureRow
}

// Writer returns a RunWriter bound to runID.
func (s *Store) Writer(runID int64) *RunWriter {
	return &RunWriter{store: s, runID: runID}
}

// RunID returns the run the writer appends to.
func (w *RunWriter) RunID() int64 {
	return w.runID
}

// WriteRecord stores one error record after the ones already written.
func (w *RunWriter) WriteRecord(ctx context.Context, rec model.ErrorRecord) error {
	if err := w.store.InsertRecord(ctx, w.runID, w.records, rec); err != nil {
		return err
	}
	w.records++
	return nil
}

// WriteFeature buffers a feature row until Flush.
func (w *RunWriter) WriteFeature(_ context.Context, row model.FeatureRow) error {
	w.pending = append(w.pending, row)
	return nil
}

// Flush stores the buffered feature rows in one transaction.
func (w *RunWriter) Flush(ctx context.Context) error {
	if err := w.store.InsertFeatures(ctx, w.runID, w.pending); err != nil {
		return err
	}
	w.pending = nil
	return nil
}

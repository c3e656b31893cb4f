package align

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elisaF/typing-classification/internal/model"
)

// RecordSink receives error records as they are emitted.
type RecordSink interface {
	WriteRecord(ctx context.Context, rec model.ErrorRecord) error
}

// SinkFunc adapts a function to a RecordSink.
type SinkFunc func(ctx context.Context, rec model.ErrorRecord) error

func (f SinkFunc) WriteRecord(ctx context.Context, rec model.ErrorRecord) error {
	return f(ctx, rec)
}

// Aligner aligns traces one at a time and streams their records to sinks.
type Aligner struct {
	sinks  []RecordSink
	logger *slog.Logger
}

// NewAligner returns an Aligner writing to sinks in order. A nil logger discards logs.
func NewAligner(logger *slog.Logger, sinks ...RecordSink) *Aligner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aligner{sinks: sinks, logger: logger}
}

// Process aligns one trace. Every record is handed to all sinks before the next one.
func (a *Aligner) Process(ctx context.Context, trace model.KeystrokeTrace) ([]model.ErrorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := trace.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trace %s: %w", trace.ItemID(), err)
	}
	pair := Align(trace.Typed(), trace.Intended)
	records := Emit(pair, trace)
	for _, rec := range records {
		for _, sink := range a.sinks {
			if err := sink.WriteRecord(ctx, rec); err != nil {
				return nil, fmt.Errorf("failed to write record %s: %w", rec.ID, err)
			}
		}
	}
	a.logger.Debug("aligned trace",
		"item", trace.ItemID(),
		"response", trace.ResponseID,
		"keys", len(trace.Keys),
		"score", pair.Score,
		"errors", len(records),
	)
	return records, nil
}

package classify

import (
	"strings"

	"github.com/elisaF/typing-classification/internal/keystroke"
	"github.com/elisaF/typing-classification/internal/model"
)

// BuildRow turns an emitted error record into a word pair row with cleaned words, a
// cleaned context and error offsets.
func BuildRow(rec model.ErrorRecord) model.WordPairRow {
	rawTyped := strings.TrimRight(rec.RawTyped, " ")
	intended := keystroke.SpacesFromMarkers(strings.TrimRight(rec.Intended, " "))
	cleaned, pos, ok := keystroke.CleanContext(rec.RawContext, rec.Position)

	row := model.WordPairRow{
		ID:              rec.ID,
		RawTyped:        rawTyped,
		Typed:           keystroke.Reconstruct(rawTyped),
		Intended:        intended,
		ErrorContext:    cleaned,
		IntendedContext: keystroke.SpacesFromMarkers(rec.IntendedContext),
		Position:        pos,
		HasPosition:     ok,
		IKI:             rec.IKI,
	}
	Locate(&row)
	return row
}

// BuildRows converts records and applies DropBadRows.
func BuildRows(recs []model.ErrorRecord, maxDiff int) ([]model.WordPairRow, model.DropCounts) {
	rows := make([]model.WordPairRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, BuildRow(rec))
	}
	return DropBadRows(rows, maxDiff)
}

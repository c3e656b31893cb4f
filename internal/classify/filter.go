package classify

import (
	"strings"

	"github.com/elisaF/typing-classification/internal/model"
)

// DefaultMaxDiff is the largest allowed length difference between the error and
// intended contexts.
const DefaultMaxDiff = 15

// DropBadRows removes rows that carry no usable error: typed equal to intended, empty
// typed words, words whose keystrokes start with a delete and rows whose contexts differ
// in length by more than maxDiff. Each rule is applied in turn and counted.
func DropBadRows(rows []model.WordPairRow, maxDiff int) ([]model.WordPairRow, model.DropCounts) {
	counts := model.DropCounts{Total: len(rows)}
	kept := rows[:0:0]
	for _, row := range rows {
		switch {
		case row.Typed == row.Intended:
			counts.NoError++
		case row.Typed == "":
			counts.BlankTyped++
		case startsWithDelete(row.Typed) || startsWithDelete(row.RawTyped):
			counts.Misaligned++
		case abs(runeLen(row.ErrorContext)-runeLen(row.IntendedContext)) > maxDiff:
			counts.TooLong++
		default:
			kept = append(kept, row)
		}
	}
	return kept, counts
}

func startsWithDelete(s string) bool {
	return strings.HasPrefix(s, string(model.DeleteMarker))
}

func runeLen(s string) int {
	return len([]rune(s))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Package classify locates, measures and classifies the error in a typed/intended word pair.
package classify

import (
	"github.com/antzucaro/matchr"

	"github.com/elisaF/typing-classification/internal/align"
	"github.com/elisaF/typing-classification/internal/model"
)

// ErrorStart returns the offset of the first error in typed relative to intended.
func ErrorStart(typed, intended string) int {
	return align.FirstDivergence(intended, typed)
}

// ErrorEnd returns the last offset of the error region. It equals start when the error
// is an omitted final letter.
func ErrorEnd(word string, start int) int {
	return max(len([]rune(word))-1, start)
}

// Locate fills the error start and end offsets of row.
func Locate(row *model.WordPairRow) {
	start := ErrorStart(row.Typed, row.Intended)
	row.ErrorStartTyped = start
	row.ErrorStartIntended = start
	row.ErrorEndTyped = ErrorEnd(row.Typed, start)
	row.ErrorEndIntended = ErrorEnd(row.Intended, start)
}

// EditDistance is the Damerau-Levenshtein distance between the suffixes of both words
// from their error starts.
func EditDistance(row model.WordPairRow) int {
	return matchr.DamerauLevenshtein(suffix(row.Intended, row.ErrorStartIntended), suffix(row.Typed, row.ErrorStartTyped))
}

func suffix(s string, from int) string {
	r := []rune(s)
	if from >= len(r) {
		return ""
	}
	return string(r[from:])
}

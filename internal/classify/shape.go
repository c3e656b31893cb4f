package classify

import (
	"strconv"

	"github.com/elisaF/typing-classification/internal/model"
)

// ClassifyLength finds how many characters on each side are out of alignment and what
// shape the error has. The search moves forward one offset at a time from the error
// start and never looks beyond the error end; when nothing resynchronises the error is
// a combination.
func ClassifyLength(row model.WordPairRow, tr *Trace) model.LengthResult {
	l := NewLookup(row, tr)
	typed, intended := []rune(row.Typed), []rune(row.Intended)
	startT, endT := row.ErrorStartTyped, row.ErrorEndTyped
	startI, endI := row.ErrorStartIntended, row.ErrorEndIntended

	afterT := spanLength(typed, startT, endT)
	afterI := spanLength(intended, startI, endI)

	// next typed character equals the mistyped intended one
	typedCatchesUp := func() (int, bool) {
		want := Mistyped(intended, startI)
		for offset := 0; startT+offset <= endT; {
			offset++
			if _, next := l.MistypedAndAfter(typed, startT, offset); next == want {
				return offset, true
			}
		}
		return 0, false
	}
	// next intended character equals the mistyped typed one
	intendedCatchesUp := func() (int, bool) {
		want := Mistyped(typed, startT)
		for offset := 0; startI+offset <= endI; {
			offset++
			if _, next := l.MistypedAndAfter(intended, startI, offset); next == want {
				return offset, true
			}
		}
		return 0, false
	}

	var res model.LengthResult
	found := false
	switch {
	case afterT == afterI:
		if off, ok := typedCatchesUp(); ok {
			res, found = model.LengthResult{Typed: off, Shape: model.ShapeMigration}, true
		} else if off, ok := intendedCatchesUp(); ok {
			res, found = model.LengthResult{Intended: off, Shape: model.ShapeDeletionLastLetter}, true
		} else {
			for offset := 0; startT+offset <= endT; {
				offset++
				_, nextT := l.MistypedAndAfter(typed, startT, offset)
				_, nextI := l.MistypedAndAfter(intended, startI, offset)
				if nextT == nextI {
					res, found = model.LengthResult{Typed: offset, Intended: offset, Shape: model.ShapeSubstitution}, true
					break
				}
			}
		}
	case afterT > afterI:
		if off, ok := typedCatchesUp(); ok {
			res, found = model.LengthResult{Typed: off, Shape: model.ShapeInsertion}, true
		}
	default:
		if off, ok := intendedCatchesUp(); ok {
			res, found = model.LengthResult{Intended: off, Shape: model.ShapeDeletion}, true
		}
	}

	if !found {
		res = model.LengthResult{
			Typed:    endT - startT + 1,
			Intended: endI - startI + 1,
			Shape:    model.ShapeCombination,
		}
	}
	tr.add(EventShape, 0, string(res.Shape)+" "+strconv.Itoa(res.Typed)+"/"+strconv.Itoa(res.Intended))
	return res
}

// spanLength is the length of word[start:end] clamped to the word.
func spanLength(word []rune, start, end int) int {
	end = min(end, len(word))
	if end <= start {
		return 0
	}
	return end - start
}

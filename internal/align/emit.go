package align

import (
	"strconv"
	"unicode/utf8"

	"github.com/elisaF/typing-classification/internal/model"
)

// FirstDivergence returns the first index where typed departs from intended: the first
// differing rune, the end of intended when typed runs past it, or the end of typed when
// it is a prefix of intended.
func FirstDivergence(intended, typed string) int {
	iw, tw := []rune(intended), []rune(typed)
	for e := range tw {
		if e >= len(iw) || tw[e] != iw[e] {
			return e
		}
	}
	return len(tw)
}

// Emit segments an alignment of trace into words and returns a record for every word
// whose typed side differs from the intended side.
//
// The alignment is walked from its last column to its first, so words are visited from
// the end of the sentence and word indexes count from there. Position is the number of
// typed runes not yet consumed when the closing column is reached.
func Emit(pair model.AlignedPair, trace model.KeystrokeTrace) []model.ErrorRecord {
	typedSeq := trace.Typed()
	n := utf8.RuneCountInString(typedSeq)
	intervals := trace.Intervals()

	var (
		records      []model.ErrorRecord
		typedWord    []rune
		intendedWord []rune
		consumed     int
		wordCount    int
	)

	emit := func(position, start int) {
		if len(typedWord) == 0 || string(typedWord) == string(intendedWord) {
			return
		}
		typed := reversed(typedWord)
		intended := reversed(intendedWord)
		rec := model.ErrorRecord{
			ID:              trace.ItemID() + "-" + strconv.Itoa(wordCount),
			RawTyped:        typed,
			Intended:        intended,
			Position:        position,
			RawContext:      typedSeq,
			IntendedContext: trace.Intended,
		}
		if idx := start + FirstDivergence(intended, typed); idx > 0 {
			if v, ok := intervals[idx]; ok {
				rec.IKI = model.IKI{Value: v, Valid: true}
			}
		}
		records = append(records, rec)
	}

	for k := len(pair.Typed) - 1; k >= 0; k-- {
		t, w := pair.Typed[k], pair.Intended[k]
		position := n - consumed
		switch {
		case t != model.Gap && w == model.SpaceMarker:
			emit(position, n-consumed)
			typedWord = typedWord[:0]
			intendedWord = intendedWord[:0]
			consumed++
			wordCount++
		case k == 0:
			if t != model.Gap {
				typedWord = append(typedWord, t)
			}
			if w != model.Gap {
				intendedWord = append(intendedWord, w)
			}
			start := n - consumed
			if t != model.Gap {
				start--
			}
			emit(position, start)
		default:
			if t != model.Gap {
				typedWord = append(typedWord, t)
				consumed++
			}
			if w != model.Gap {
				intendedWord = append(intendedWord, w)
			}
		}
	}
	return records
}

func reversed(r []rune) string {
	out := make([]rune, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return string(out)
}

package classify

import "github.com/elisaF/typing-classification/internal/model"

// Lookup resolves characters around the error of one row, falling back to sentinels
// when the stored context runs out.
type Lookup struct {
	context  []rune
	typedLen int
	pos      int
	hasPos   bool
	trace    *Trace
}

// NewLookup builds a Lookup for row. tr may be nil.
func NewLookup(row model.WordPairRow, tr *Trace) *Lookup {
	return &Lookup{
		context:  []rune(row.ErrorContext),
		typedLen: len([]rune(row.Typed)),
		pos:      row.Position,
		hasPos:   row.HasPosition,
		trace:    tr,
	}
}

func (l *Lookup) pastLimit() bool {
	return !l.hasPos || l.pos > len(l.context)
}

// CharAfter returns the context character offset places after the typed word.
// Past the end of the context it is '.' for offset 0 and ' ' beyond.
func (l *Lookup) CharAfter(offset int) rune {
	if l.pastLimit() {
		l.trace.add(EventPastLimit, offset, "after")
		return ' '
	}
	idx := l.pos + l.typedLen + offset
	if idx >= len(l.context) {
		l.trace.add(EventContextEnd, offset, "")
		switch offset {
		case 0:
			return '.'
		case 1:
			return ' '
		default:
			l.trace.add(EventSpeculative, offset, "")
			return ' '
		}
	}
	return l.context[idx]
}

// CharBefore returns the context character offset places before the word start.
func (l *Lookup) CharBefore(offset int) rune {
	if l.pastLimit() {
		l.trace.add(EventPastLimit, offset, "before")
		return ' '
	}
	if l.pos == 0 || l.pos-offset < 0 {
		l.trace.add(EventContextStart, offset, "")
		return ' '
	}
	return l.context[l.pos-offset]
}

// Mistyped returns word[errorIndex], or a space when the error sits past the last letter.
func Mistyped(word []rune, errorIndex int) rune {
	if errorIndex >= len(word) {
		return ' '
	}
	return word[errorIndex]
}

// MistypedAndAfter returns the mistyped character and the one offset places after it,
// continuing into the context past the end of word.
func (l *Lookup) MistypedAndAfter(word []rune, errorIndex, offset int) (rune, rune) {
	if len(word) == errorIndex {
		return l.CharAfter(0), l.CharAfter(offset)
	}
	first := word[errorIndex]
	if len(word) <= errorIndex+offset {
		return first, l.CharAfter(errorIndex + offset - len(word))
	}
	return first, word[errorIndex+offset]
}

// MistypedAndBefore returns the mistyped character and the one offset places before it,
// continuing into the context before the start of word.
func (l *Lookup) MistypedAndBefore(word []rune, errorIndex, offset int) (rune, rune) {
	var first rune
	if len(word) == errorIndex {
		first = l.CharAfter(0)
	} else {
		first = word[errorIndex]
	}
	if errorIndex-offset < 0 {
		return first, l.CharBefore(offset - errorIndex)
	}
	return first, word[errorIndex-offset]
}

// NgramBefore returns the mistyped character preceded by n characters.
func (l *Lookup) NgramBefore(word []rune, errorIndex, n int) string {
	out := []rune{Mistyped(word, errorIndex)}
	for i := 1; i <= n; i++ {
		_, prev := l.MistypedAndBefore(word, errorIndex, i)
		out = append([]rune{prev}, out...)
	}
	return string(out)
}

// NgramAfter returns the mistyped character followed by n characters.
func (l *Lookup) NgramAfter(word []rune, errorIndex, n int) string {
	out := []rune{Mistyped(word, errorIndex)}
	for i := 1; i <= n; i++ {
		_, next := l.MistypedAndAfter(word, errorIndex, i)
		out = append(out, next)
	}
	return string(out)
}

// Package keyboard measures physical distances between keys.
package keyboard

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// FallbackDistance is returned when either key is not on the layout.
const FallbackDistance = 2.5

// ErrUnknownLayout is returned for a language without a layout.
var ErrUnknownLayout = errors.New("unknown keyboard layout")

// Distance maps two characters to a physical key distance and a hand relation.
type Distance interface {
	Distance(a, b rune) float64
	SameHand(a, b rune) bool
}

// Hand is the hand that normally presses a key.
type Hand int

const (
	Either Hand = iota
	Left
	Right
)

type keyPos struct {
	row  int
	col  int
	hand Hand
}

// Layout is a keyboard with each key's row, column and hand.
type Layout struct {
	name string
	pos  map[rune]keyPos
}

// rows are listed top to bottom; keys before split belong to the left hand.
type rowSpec struct {
	keys  string
	split int
}

var layouts = map[string][]rowSpec{
	"english": {
		{"1234567890-=", 5},
		{"qwertyuiop[]", 5},
		{"asdfghjkl;'", 5},
		{"zxcvbnm,./", 5},
	},
	"spanish": {
		{"1234567890'¡", 5},
		{"qwertyuiop`+", 5},
		{"asdfghjklñ´ç", 5},
		{"zxcvbnm,.-", 5},
	},
}

func newLayout(name string, rows []rowSpec) *Layout {
	m := make(map[rune]keyPos)
	for r, spec := range rows {
		for c, ch := range []rune(spec.keys) {
			hand := Right
			if c < spec.split {
				hand = Left
			}
			m[ch] = keyPos{row: r, col: c, hand: hand}
		}
	}
	m[' '] = keyPos{row: len(rows), col: 4, hand: Either}
	return &Layout{name: name, pos: m}
}

// ForLanguage returns the layout for a language name such as "english" or "spanish".
func ForLanguage(language string) (*Layout, error) {
	name := strings.ToLower(strings.TrimSpace(language))
	rows, ok := layouts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, language)
	}
	return newLayout(name, rows), nil
}

// Languages lists the languages with a layout.
func Languages() []string {
	return []string{"english", "spanish"}
}

// Name returns the layout's language.
func (l *Layout) Name() string {
	return l.name
}

// Distance is the Euclidean distance between two keys in row/column units.
func (l *Layout) Distance(a, b rune) float64 {
	pa, oka := l.pos[unicode.ToLower(a)]
	pb, okb := l.pos[unicode.ToLower(b)]
	if !oka || !okb {
		return FallbackDistance
	}
	dr := float64(pa.row - pb.row)
	dc := float64(pa.col - pb.col)
	return math.Sqrt(dr*dr + dc*dc)
}

// SameHand reports whether both keys are pressed by the same hand. Keys that are not on
// the layout, and the space bar, belong to neither hand.
func (l *Layout) SameHand(a, b rune) bool {
	pa, oka := l.pos[unicode.ToLower(a)]
	pb, okb := l.pos[unicode.ToLower(b)]
	if !oka || !okb || pa.hand == Either || pb.hand == Either {
		return false
	}
	return pa.hand == pb.hand
}

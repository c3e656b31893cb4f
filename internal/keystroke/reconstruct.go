package keystroke

import (
	"strings"

	"github.com/elisaF/typing-classification/internal/model"
)

// Reconstruct returns the word a raw segment produces once deletes are applied.
// Input after the first space marker is ignored.
func Reconstruct(segment string) string {
	var m Machine
	for _, r := range segment {
		if r == model.SpaceMarker {
			break
		}
		if r == model.DeleteMarker {
			m.Delete()
			continue
		}
		m.Type(r)
	}
	return m.Finish()
}

// CleanContext replays a raw typed context and returns the text left on screen along
// with the index of the error word's first character in it.
//
// The character at errorIndex is never deleted. A delete keystroke at errorIndex is
// not applied; the next retained character takes the error index instead. ok is false
// when errorIndex never resolves to a retained character.
func CleanContext(rawContext string, errorIndex int) (cleaned string, newIndex int, ok bool) {
	var m Machine
	newIndex = -1
	markNext := false
	for i, r := range []rune(SpacesFromMarkers(rawContext)) {
		if r == model.DeleteMarker {
			if i == errorIndex && newIndex < 0 {
				markNext = true
				continue
			}
			m.Delete()
			continue
		}
		m.Type(r)
		if newIndex < 0 && (i == errorIndex || markNext) {
			newIndex = m.Len() - 1
			m.Protect()
			markNext = false
		}
	}
	return m.Finish(), newIndex, newIndex >= 0
}

// SpacesFromMarkers replaces space markers with literal spaces.
func SpacesFromMarkers(s string) string {
	return strings.Map(func(r rune) rune {
		if r == model.SpaceMarker {
			return ' '
		}
		return r
	}, s)
}

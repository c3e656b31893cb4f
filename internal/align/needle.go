// Package align computes global alignments between typed traces and intended sentences
// and emits one error record per misaligned word.
package align

import "github.com/elisaF/typing-classification/internal/model"

const (
	matchAward      = 1
	mismatchPenalty = -1
	gapPenalty      = -2
)

// Table is a filled Needleman-Wunsch score table.
type Table struct {
	typed    []rune
	intended []rune
	score    [][]int
}

// NewTable fills the score table for the two sequences.
func NewTable(typed, intended []rune) *Table {
	m, n := len(typed), len(intended)
	score := make([][]int, m+1)
	for i := range score {
		score[i] = make([]int, n+1)
		score[i][0] = gapPenalty * i
	}
	for j := 0; j <= n; j++ {
		score[0][j] = gapPenalty * j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			diag := score[i-1][j-1] + matchScore(typed[i-1], intended[j-1])
			del := score[i-1][j] + gapPenalty
			ins := score[i][j-1] + gapPenalty
			score[i][j] = max(diag, del, ins)
		}
	}
	return &Table{typed: typed, intended: intended, score: score}
}

// At returns the score of aligning typed[:i] with intended[:j].
func (t *Table) At(i, j int) int {
	return t.score[i][j]
}

// Score returns the score of the full alignment.
func (t *Table) Score() int {
	return t.score[len(t.typed)][len(t.intended)]
}

// Traceback walks from the bottom-right cell back to the origin, preferring a diagonal
// step, then a deletion (typed rune against a gap), then an insertion (gap against an
// intended rune). The result is in natural left-to-right order.
func (t *Table) Traceback() model.AlignedPair {
	i, j := len(t.typed), len(t.intended)
	capacity := i + j
	typedRev := make([]rune, 0, capacity)
	intendedRev := make([]rune, 0, capacity)

	for i > 0 && j > 0 {
		cur := t.score[i][j]
		switch {
		case cur == t.score[i-1][j-1]+matchScore(t.typed[i-1], t.intended[j-1]):
			typedRev = append(typedRev, t.typed[i-1])
			intendedRev = append(intendedRev, t.intended[j-1])
			i--
			j--
		case cur == t.score[i-1][j]+gapPenalty:
			typedRev = append(typedRev, t.typed[i-1])
			intendedRev = append(intendedRev, model.Gap)
			i--
		default:
			typedRev = append(typedRev, model.Gap)
			intendedRev = append(intendedRev, t.intended[j-1])
			j--
		}
	}
	for ; i > 0; i-- {
		typedRev = append(typedRev, t.typed[i-1])
		intendedRev = append(intendedRev, model.Gap)
	}
	for ; j > 0; j-- {
		typedRev = append(typedRev, model.Gap)
		intendedRev = append(intendedRev, t.intended[j-1])
	}

	reverse(typedRev)
	reverse(intendedRev)
	return model.AlignedPair{Typed: typedRev, Intended: intendedRev, Score: t.Score()}
}

// Align globally aligns a raw typed trace with the intended sentence.
func Align(typed, intended string) model.AlignedPair {
	return NewTable([]rune(typed), []rune(intended)).Traceback()
}

// ColumnScore scores one alignment column.
func ColumnScore(typed, intended rune) int {
	if typed == model.Gap || intended == model.Gap {
		return gapPenalty
	}
	return matchScore(typed, intended)
}

func matchScore(a, b rune) int {
	if a == b {
		return matchAward
	}
	return mismatchPenalty
}

func reverse(r []rune) {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
}

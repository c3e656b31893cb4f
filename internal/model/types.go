// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// Reserved symbols in raw traces, intended sentences and alignments.
const (
	DeleteMarker = '*'
	SpaceMarker  = '}'
	Gap          = '^'
)

// Keystroke is one typed character and the time it was pressed.
type Keystroke struct {
	Char rune
	Time float64
}

// KeystrokeTrace is the raw keystroke log of one response attempt.
type KeystrokeTrace struct {
	ParticipantID string
	SentenceID    string
	ResponseID    string
	Intended      string
	Keys          []Keystroke
}

// ItemID identifies the trace in composite record ids.
func (t KeystrokeTrace) ItemID() string {
	return t.ParticipantID + "-" + t.SentenceID
}

// Typed returns the raw typed sequence.
func (t KeystrokeTrace) Typed() string {
	runes := make([]rune, len(t.Keys))
	for i, k := range t.Keys {
		runes[i] = k.Char
	}
	return string(runes)
}

// Intervals returns the inter-keystroke interval of every keystroke after the first,
// keyed by its index in the trace.
func (t KeystrokeTrace) Intervals() map[int]float64 {
	out := make(map[int]float64, len(t.Keys))
	for i := 1; i < len(t.Keys); i++ {
		out[i] = t.Keys[i].Time - t.Keys[i-1].Time
	}
	return out
}

// Validate checks that timestamps never decrease.
func (t KeystrokeTrace) Validate() error {
	for i := 1; i < len(t.Keys); i++ {
		if t.Keys[i].Time < t.Keys[i-1].Time {
			return fmt.Errorf("timestamp decreases at keystroke %d (%v < %v)", i, t.Keys[i].Time, t.Keys[i-1].Time)
		}
	}
	return nil
}

// AlignedPair is a global alignment in natural left-to-right order.
type AlignedPair struct {
	Typed    []rune
	Intended []rune
	Score    int
}

// IKI is an inter-keystroke interval that may be unavailable.
type IKI struct {
	Value float64
	Valid bool
}

// String renders the interval, or NA when there is no preceding keystroke.
func (i IKI) String() string {
	if !i.Valid {
		return "NA"
	}
	return FormatNumber(i.Value)
}

// ErrorRecord is one misaligned word emitted by the aligner.
type ErrorRecord struct {
	ID              string
	RawTyped        string
	Intended        string
	Position        int
	RawContext      string
	IntendedContext string
	IKI             IKI
}

// WordPairRow is the unit consumed by the classifier.
type WordPairRow struct {
	ID                 string
	RawTyped           string
	Typed              string
	Intended           string
	ErrorContext       string
	IntendedContext    string
	Position           int
	HasPosition        bool
	IKI                IKI
	ErrorStartTyped    int
	ErrorStartIntended int
	ErrorEndTyped      int
	ErrorEndIntended   int
}

// Shape classifies the form of a typing error.
type Shape string

// Error shapes.
const (
	ShapeSubstitution       Shape = "substitution"
	ShapeInsertion          Shape = "insertion"
	ShapeDeletion           Shape = "deletion"
	ShapeDeletionLastLetter Shape = "deletion-of-last-letter"
	ShapeMigration          Shape = "migration"
	ShapeCombination        Shape = "combination"
)

// Shapes lists every shape in report order.
var Shapes = []Shape{
	ShapeSubstitution,
	ShapeInsertion,
	ShapeDeletion,
	ShapeDeletionLastLetter,
	ShapeMigration,
	ShapeCombination,
}

// LengthResult is the misaligned length on each side and the detected shape.
type LengthResult struct {
	Typed    int
	Intended int
	Shape    Shape
}

// FeatureRow is a classified word pair with its derived feature columns.
type FeatureRow struct {
	WordPairRow

	DiffLength               int
	EditDistance             int
	LengthMisalignedTyped    int
	LengthMisalignedIntended int
	Shape                    Shape
	ContextExhausted         bool

	KeyboardTypedAfter      float64
	KeyboardTypedBefore     float64
	KeyboardSame            float64
	KeyboardIntendedAfter   float64
	KeyboardIntendedAfter2  float64
	KeyboardIntendedBefore  float64
	KeyboardIntendedBefore2 float64
	SameHandAfter           bool
	SameHandBefore          bool

	NgramTyped    NgramProbs
	NgramIntended NgramProbs
}

// NgramProbs holds n-gram probabilities around the mistyped character.
// Before[k] and After[k] are the (k+2)-gram probabilities.
type NgramProbs struct {
	Unigram float64
	Before  [4]float64
	After   [4]float64
}

// DropCounts records why rows were removed before feature extraction.
type DropCounts struct {
	Total      int
	NoError    int
	BlankTyped int
	Misaligned int
	TooLong    int
}

// Kept returns the number of rows that survived filtering.
func (d DropCounts) Kept() int {
	return d.Total - d.NoError - d.BlankTyped - d.Misaligned - d.TooLong
}

// ShapeAggregate summarizes stored feature rows of one shape.
type ShapeAggregate struct {
	Shape          Shape
	Count          int
	IKISum         float64
	IKICount       int
	EditDistSum    int
	ExhaustedCount int
}

// FormatNumber prints v with at most 12 significant digits and no trailing zeros, so
// integral values have no fractional part and subtraction noise is rounded away.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// Run kinds.
const (
	RunAlign    = "align"
	RunFeatures = "features"
)

// RunStats describes one pipeline run.
type RunStats struct {
	Kind      string
	StartedAt time.Time
	EndedAt   time.Time
	Input     string
	Language  string
	Traces    int
	Records   int
	Drops     DropCounts
}

// RunAggregate is a stored run.
type RunAggregate struct {
	RunID int64
	RunStats
}

// CharAggregate summarizes errors on one intended character.
type CharAggregate struct {
	Char     string
	Errors   int
	IKISum   float64
	IKICount int
}

// ReportConfig selects what a report covers.
type ReportConfig struct {
	Kind  string
	Since *time.Time
	Last  int
	RunID int64
	Top   int
}

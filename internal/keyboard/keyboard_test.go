package keyboard

import (
	"errors"
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	l, err := ForLanguage("english")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	cases := []struct {
		a, b rune
		want float64
	}{
		{'a', 'a', 0},
		{'a', 's', 1},
		{'q', 'a', 1},
		{'q', 's', math.Sqrt2},
		{'Q', 'w', 1},
		{'a', '€', FallbackDistance},
	}
	for _, tc := range cases {
		if got := l.Distance(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Distance(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
	if l.Distance('t', 'h') != l.Distance('h', 't') {
		t.Fatalf("distance must be symmetric")
	}
}

func TestSameHand(t *testing.T) {
	l, _ := ForLanguage("english")
	if !l.SameHand('a', 'f') {
		t.Fatalf("a and f are both left hand")
	}
	if l.SameHand('f', 'j') {
		t.Fatalf("f and j are on different hands")
	}
	if l.SameHand(' ', 'a') || l.SameHand('a', '€') {
		t.Fatalf("space and unknown keys belong to neither hand")
	}
}

func TestSpanishLayout(t *testing.T) {
	l, err := ForLanguage(" Spanish ")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l.Name() != "spanish" {
		t.Fatalf("unexpected name %q", l.Name())
	}
	if got := l.Distance('l', 'ñ'); got != 1 {
		t.Fatalf("Distance(l, ñ) = %v", got)
	}
	if !l.SameHand('ñ', 'j') {
		t.Fatalf("ñ is right hand")
	}
}

func TestUnknownLayout(t *testing.T) {
	if _, err := ForLanguage("klingon"); !errors.Is(err, ErrUnknownLayout) {
		t.Fatalf("expected ErrUnknownLayout, got %v", err)
	}
}

package model

import "testing"

func TestIKIString(t *testing.T) {
	cases := []struct {
		iki  IKI
		want string
	}{
		{IKI{}, "NA"},
		{IKI{Value: 120, Valid: true}, "120"},
		{IKI{Value: 87.5, Valid: true}, "87.5"},
		{IKI{Value: 0, Valid: true}, "0"},
		{IKI{Value: 0.19999999999999996, Valid: true}, "0.2"},
		{IKI{Value: 1510.000000001, Valid: true}, "1510"},
		{IKI{Value: 250000, Valid: true}, "250000"},
	}
	for _, tc := range cases {
		if got := tc.iki.String(); got != tc.want {
			t.Fatalf("IKI(%+v).String() = %q, want %q", tc.iki, got, tc.want)
		}
	}
}

func TestTraceIntervalsAndValidate(t *testing.T) {
	trace := KeystrokeTrace{
		ParticipantID: "1a",
		SentenceID:    "7",
		Keys: []Keystroke{
			{Char: 't', Time: 100},
			{Char: 'h', Time: 250},
			{Char: 'e', Time: 300},
		},
	}
	if trace.Typed() != "the" {
		t.Fatalf("unexpected typed sequence %q", trace.Typed())
	}
	if trace.ItemID() != "1a-7" {
		t.Fatalf("unexpected item id %q", trace.ItemID())
	}
	ivals := trace.Intervals()
	if _, ok := ivals[0]; ok {
		t.Fatalf("first keystroke must not have an interval")
	}
	if ivals[1] != 150 || ivals[2] != 50 {
		t.Fatalf("unexpected intervals: %v", ivals)
	}
	if err := trace.Validate(); err != nil {
		t.Fatalf("expected valid trace: %v", err)
	}
	trace.Keys[2].Time = 10
	if err := trace.Validate(); err == nil {
		t.Fatalf("expected decreasing timestamps to be rejected")
	}
}

func TestIntervalRendersWithoutNoise(t *testing.T) {
	trace := KeystrokeTrace{Keys: []Keystroke{{Char: 'a', Time: 1.1}, {Char: 'b', Time: 1.3}}}
	iki := IKI{Value: trace.Intervals()[1], Valid: true}
	if got := iki.String(); got != "0.2" {
		t.Fatalf("interval rendered as %q, want 0.2", got)
	}
}

package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Char", "Errors", "Mean IKI"}
	rows := [][]string{
		{"a", "12", "97.5"},
		{"<space>", "3", "180.0"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Char    Errors Mean IKI" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a           12     97.5" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "<space>      3    180.0" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Word", "N"}, [][]string{{"日本", "1"}, {"ab", "2"}}, nil)
	if lines[1] != "日本 1" || lines[2] != "ab   2" {
		t.Fatalf("wide runes misaligned: %q", lines)
	}
}

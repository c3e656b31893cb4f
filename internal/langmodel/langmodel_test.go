package langmodel

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testARPA = `\data\
ngram 1=4
ngram 2=2

\1-grams:
-1.0	a	-0.5
-0.5	b	-0.3
-2.0	<unk>
-1.5	<space>

\2-grams:
-0.2	a b
-0.4	b a

\end\
`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chars.lm")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func TestLoadAndScore(t *testing.T) {
	m, err := Load(writeModel(t, testARPA))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Order() != 2 {
		t.Fatalf("expected order 2, got %d", m.Order())
	}
	cases := []struct {
		chars string
		want  float64
	}{
		{"a", -1.0},
		{"ab", -1.2},
		{"ac", -3.5},
		{"a b", -3.5},
		{"", 0},
	}
	for _, tc := range cases {
		if got := m.LogProb(tc.chars); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("LogProb(%q) = %v, want %v", tc.chars, got, tc.want)
		}
	}
	p, err := m.Prob(context.Background(), "ab")
	if err != nil {
		t.Fatalf("prob: %v", err)
	}
	if math.Abs(p-math.Pow(10, -1.2)) > 1e-12 {
		t.Fatalf("unexpected probability %v", p)
	}
}

func TestSpaceToken(t *testing.T) {
	m, err := ParseBytes([]byte(testARPA), WithSpaceToken("_"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if toks := m.Tokens("a b"); len(toks) != 3 || toks[1] != "_" {
		t.Fatalf("unexpected tokens %v", toks)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeModel(t, "")); !errors.Is(err, ErrBadModel) {
		t.Fatalf("expected ErrBadModel for empty file, got %v", err)
	}
	bad := "\\data\\\nngram 1=1\n\n\\1-grams:\nnotanumber\ta\n\\end\\\n"
	if _, err := Load(writeModel(t, bad)); !errors.Is(err, ErrBadModel) {
		t.Fatalf("expected ErrBadModel for bad probability, got %v", err)
	}
	if _, err := ParseBytes([]byte("\\data\\\nngram 1=1\n")); !errors.Is(err, ErrBadModel) {
		t.Fatalf("expected ErrBadModel without sections, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.lm")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

type countingScorer struct {
	calls int
}

func (c *countingScorer) Prob(_ context.Context, chars string) (float64, error) {
	c.calls++
	return float64(len(chars)) / 10, nil
}

func TestCached(t *testing.T) {
	inner := &countingScorer{}
	c, err := NewCached(inner, 2)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p, err := c.Prob(ctx, "abc")
		if err != nil || p != 0.3 {
			t.Fatalf("unexpected result %v/%v", p, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one underlying call, got %d", inner.calls)
	}
	_, _ = c.Prob(ctx, "a")
	_, _ = c.Prob(ctx, "ab")
	if c.Len() != 2 {
		t.Fatalf("expected cache bounded to 2, got %d", c.Len())
	}
	_, _ = c.Prob(ctx, "abc")
	if inner.calls != 4 {
		t.Fatalf("expected evicted entry to be rescored, got %d calls", inner.calls)
	}
}

func TestSharedCache(t *testing.T) {
	addr := os.Getenv("TYPECLASS_TEST_REDIS")
	if addr == "" {
		t.Skip("TYPECLASS_TEST_REDIS not set")
	}
	ctx := context.Background()
	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	inner := &countingScorer{}
	key := "test-" + time.Now().Format("150405.000000")
	s := NewShared(inner, client, key, time.Minute)
	for i := 0; i < 2; i++ {
		if p, err := s.Prob(ctx, "xy"); err != nil || p != 0.2 {
			t.Fatalf("unexpected result %v/%v", p, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected second lookup served from redis, got %d calls", inner.calls)
	}
}

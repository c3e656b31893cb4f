// Package langmodel scores character sequences with a backoff n-gram model.
package langmodel

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultSpaceToken is the token a literal space maps to in the model vocabulary.
const DefaultSpaceToken = "<space>"

const (
	unknownToken = "<unk>"
	// log10 probability for tokens missing from the vocabulary when there is no <unk>.
	floorLogProb = -99.0
)

// ErrBadModel is returned for malformed ARPA input.
var ErrBadModel = errors.New("malformed ARPA model")

// Scorer returns the probability of a character sequence.
type Scorer interface {
	Prob(ctx context.Context, chars string) (float64, error)
}

type entry struct {
	logProb float64
	backoff float64
}

// Model is a character n-gram model read from an ARPA file.
type Model struct {
	order int
	space string
	grams map[string]entry
}

// Option configures a Model.
type Option func(*Model)

// WithSpaceToken sets the vocabulary token used for a literal space.
func WithSpaceToken(tok string) Option {
	return func(m *Model) {
		m.space = tok
	}
}

// Parse reads an ARPA model from r.
func Parse(r io.Reader, opts ...Option) (*Model, error) {
	m := &Model{space: DefaultSpaceToken, grams: make(map[string]entry)}
	for _, opt := range opts {
		opt(m)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	section := -1 // -1 before \data\, 0 inside \data\, n inside \n-grams:
	lineNo := 0
	declared := map[int]int{}
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case line == `\data\`:
			section = 0
			continue
		case line == `\end\`:
			section = -2
			continue
		case strings.HasPrefix(line, `\`) && strings.HasSuffix(line, "-grams:"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), "-grams:"))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: line %d: bad section %q", ErrBadModel, lineNo, line)
			}
			section = n
			m.order = max(m.order, n)
			continue
		}

		switch {
		case section == 0:
			if n, count, ok := parseCount(line); ok {
				declared[n] = count
			}
		case section > 0:
			if err := m.addGram(line, section); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrBadModel, lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	if m.order == 0 {
		return nil, fmt.Errorf("%w: no n-gram sections", ErrBadModel)
	}
	if len(declared) == 0 {
		return nil, fmt.Errorf("%w: missing \\data\\ header", ErrBadModel)
	}
	return m, nil
}

// ParseBytes reads an ARPA model held in memory.
func ParseBytes(data []byte, opts ...Option) (*Model, error) {
	return Parse(bytes.NewReader(data), opts...)
}

func parseCount(line string) (int, int, bool) {
	rest, ok := strings.CutPrefix(line, "ngram ")
	if !ok {
		return 0, 0, false
	}
	left, right, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(left))
	count, err2 := strconv.Atoi(strings.TrimSpace(right))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return n, count, true
}

func (m *Model) addGram(line string, n int) error {
	fields := strings.Fields(line)
	if len(fields) != n+1 && len(fields) != n+2 {
		return fmt.Errorf("expected %d tokens for %d-gram, got %d", n, n, len(fields)-1)
	}
	logProb, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("bad probability %q", fields[0])
	}
	e := entry{logProb: logProb}
	if len(fields) == n+2 {
		if e.backoff, err = strconv.ParseFloat(fields[n+1], 64); err != nil {
			return fmt.Errorf("bad backoff %q", fields[n+1])
		}
	}
	m.grams[strings.Join(fields[1:n+1], " ")] = e
	return nil
}

// Order returns the highest n-gram order in the model.
func (m *Model) Order() int {
	return m.order
}

// Tokens converts a character sequence to model tokens.
func (m *Model) Tokens(chars string) []string {
	out := make([]string, 0, len(chars))
	for _, r := range chars {
		if r == ' ' {
			out = append(out, m.space)
			continue
		}
		out = append(out, string(r))
	}
	return out
}

// LogProb returns the log10 probability of the whole sequence, each token conditioned on
// up to order-1 preceding tokens with backoff.
func (m *Model) LogProb(chars string) float64 {
	toks := m.Tokens(chars)
	total := 0.0
	for i := range toks {
		from := max(0, i-m.order+1)
		total += m.conditional(toks[from:i], toks[i])
	}
	return total
}

// Prob returns the probability of the whole sequence.
func (m *Model) Prob(_ context.Context, chars string) (float64, error) {
	return math.Pow(10, m.LogProb(chars)), nil
}

func (m *Model) conditional(history []string, tok string) float64 {
	key := strings.Join(append(append([]string{}, history...), tok), " ")
	if e, ok := m.grams[key]; ok {
		return e.logProb
	}
	if len(history) == 0 {
		if e, ok := m.grams[unknownToken]; ok {
			return e.logProb
		}
		return floorLogProb
	}
	backoff := 0.0
	if e, ok := m.grams[strings.Join(history, " ")]; ok {
		backoff = e.backoff
	}
	return backoff + m.conditional(history[1:], tok)
}

// Package ingest reads keystroke logs and reads/writes the error table.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/elisaF/typing-classification/internal/config"
	"github.com/elisaF/typing-classification/internal/model"
)

// Sentinel errors for fatal input problems.
var (
	ErrMalformedRow         = errors.New("malformed row")
	ErrUnmappedParticipant  = errors.New("unmapped participant id")
	ErrUnsupportedDelimiter = errors.New("unsupported delimiter")
)

// Column positions in a keystroke log.
const (
	colTime = iota
	colChar
	colResponse
	colUnused
	colParticipant
	colSentenceID
	colSentence
	minColumns
)

// Options configures ReadTraces.
type Options struct {
	// Delimiter separates fields; zero means comma.
	Delimiter rune
	// IDMap remaps participant ids. Nil leaves them as read.
	IDMap *config.IDMap
}

// DelimiterFor picks the field delimiter from an explicit override or the file extension.
func DelimiterFor(path, override string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "":
	case ",", "comma", "csv":
		return ',', nil
	case "\t", `\t`, "tab", "tsv":
		return '\t', nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDelimiter, override)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab", ".txt":
		return '\t', nil
	}
	return ',', nil
}

type traceKey struct {
	participant string
	sentence    string
	response    string
}

// ReadTraces parses a keystroke log and calls fn once per trace, in file order.
// Consecutive rows sharing participant, sentence and response form one trace.
func ReadTraces(ctx context.Context, r io.Reader, opts Options, fn func(model.KeystrokeTrace) error) error {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to read header: %w", err)
	}

	var (
		current model.KeystrokeTrace
		key     traceKey
		open    bool
	)
	flush := func() error {
		if !open {
			return nil
		}
		open = false
		if err := current.Validate(); err != nil {
			return fmt.Errorf("trace %s: %w: %w", current.ItemID(), ErrMalformedRow, err)
		}
		return fn(current)
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("row %d: %w: %w", line, ErrMalformedRow, err)
		}
		if len(record) < minColumns {
			return fmt.Errorf("row %d: %w: %d columns, want %d", line, ErrMalformedRow, len(record), minColumns)
		}

		ts, err := strconv.ParseFloat(strings.TrimSpace(record[colTime]), 64)
		if err != nil {
			return fmt.Errorf("row %d: %w: timestamp %q", line, ErrMalformedRow, record[colTime])
		}
		ch, err := NormalizeTyped(record[colChar])
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		participant := config.NormalizeID(record[colParticipant])
		if opts.IDMap != nil {
			mapped, ok := opts.IDMap.Lookup(participant)
			if !ok {
				return fmt.Errorf("row %d: %w: %q", line, ErrUnmappedParticipant, participant)
			}
			participant = mapped
		}
		next := traceKey{
			participant: participant,
			sentence:    config.NormalizeID(record[colSentenceID]),
			response:    strings.TrimSpace(record[colResponse]),
		}

		if !open || next != key {
			if err := flush(); err != nil {
				return err
			}
			key = next
			current = model.KeystrokeTrace{
				ParticipantID: next.participant,
				SentenceID:    next.sentence,
				ResponseID:    next.response,
				Intended:      NormalizeSentence(record[colSentence]),
			}
			open = true
		}
		current.Keys = append(current.Keys, model.Keystroke{Char: ch, Time: ts})
	}
	return flush()
}

// NormalizeTyped maps a logged key to the single rune used in traces.
func NormalizeTyped(raw string) (rune, error) {
	s := strings.ReplaceAll(raw, `","`, ",")
	if s != `"` {
		s = strings.TrimRight(s, `"`)
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "backspace", string(model.DeleteMarker))
	s = strings.ReplaceAll(s, " ", string(model.SpaceMarker))
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: typed key %q", ErrMalformedRow, raw)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// NormalizeSentence lower-cases the intended sentence, strips its quotes and marks spaces.
func NormalizeSentence(raw string) string {
	s := strings.TrimRightFunc(raw, func(r rune) bool { return r == ' ' || r == '\t' || r == '\r' || r == '\n' })
	s = strings.TrimRight(s, `"`)
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, " ", string(model.SpaceMarker))
}

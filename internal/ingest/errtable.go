package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/elisaF/typing-classification/internal/model"
)

// TableHeader is the first line of an error table.
var TableHeader = []string{
	"ID",
	"Raw Typed",
	"Intended",
	"Original Position of word",
	"Raw Typed Context",
	"Intended Context",
	"IKI_FOR_ERROR",
}

// TableWriter appends error records to a tab separated table.
type TableWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

// CreateTable truncates path and writes the header.
func CreateTable(path string) (*TableWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create error table: %w", err)
	}
	tw, err := NewTableWriter(f)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close on header failure.
			_ = cerr
		}
		return nil, err
	}
	tw.closer = f
	return tw, nil
}

// NewTableWriter writes the header to w and returns a writer for records.
func NewTableWriter(w io.Writer) (*TableWriter, error) {
	tw := &TableWriter{w: bufio.NewWriter(w)}
	if err := tw.writeLine(TableHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return tw, nil
}

// WriteRecord appends one record and flushes it.
func (tw *TableWriter) WriteRecord(ctx context.Context, rec model.ErrorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tw.writeLine([]string{
		rec.ID,
		rec.RawTyped,
		rec.Intended,
		strconv.Itoa(rec.Position),
		rec.RawContext,
		rec.IntendedContext,
		rec.IKI.String(),
	})
}

func (tw *TableWriter) writeLine(fields []string) error {
	if _, err := tw.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
		return err
	}
	return tw.w.Flush()
}

// Close closes the underlying file when the writer owns one.
func (tw *TableWriter) Close() error {
	if err := tw.w.Flush(); err != nil {
		return err
	}
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

// ReadTable parses an error table written by TableWriter.
func ReadTable(r io.Reader) ([]model.ErrorRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var records []model.ErrorRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if line == 1 {
			if !strings.HasPrefix(text, TableHeader[0]+"\t") {
				return nil, fmt.Errorf("line 1: %w: missing header", ErrMalformedRow)
			}
			continue
		}
		if text == "" {
			continue
		}
		rec, err := parseTableLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read error table: %w", err)
	}
	return records, nil
}

// ReadTableFile opens path and parses it with ReadTable.
func ReadTableFile(path string) ([]model.ErrorRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after read.
			_ = cerr
		}
	}()
	return ReadTable(f)
}

func parseTableLine(text string) (model.ErrorRecord, error) {
	fields := strings.Split(text, "\t")
	if len(fields) != len(TableHeader) {
		return model.ErrorRecord{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedRow, len(fields), len(TableHeader))
	}
	pos, err := strconv.Atoi(fields[3])
	if err != nil {
		return model.ErrorRecord{}, fmt.Errorf("%w: position %q", ErrMalformedRow, fields[3])
	}
	iki, err := parseIKI(fields[6])
	if err != nil {
		return model.ErrorRecord{}, err
	}
	return model.ErrorRecord{
		ID:              fields[0],
		RawTyped:        fields[1],
		Intended:        fields[2],
		Position:        pos,
		RawContext:      fields[4],
		IntendedContext: fields[5],
		IKI:             iki,
	}, nil
}

func parseIKI(s string) (model.IKI, error) {
	if s == "NA" || s == "" {
		return model.IKI{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return model.IKI{}, fmt.Errorf("%w: interval %q", ErrMalformedRow, s)
	}
	return model.IKI{Value: v, Valid: true}, nil
}

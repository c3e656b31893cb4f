// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/elisaF/typing-classification/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for pipeline runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			input TEXT NOT NULL,
			language TEXT NOT NULL,
			traces INTEGER NOT NULL,
			records INTEGER NOT NULL,
			rows_total INTEGER NOT NULL,
			dropped_no_error INTEGER NOT NULL,
			dropped_blank INTEGER NOT NULL,
			dropped_misaligned INTEGER NOT NULL,
			dropped_too_long INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS error_records (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			raw_typed TEXT NOT NULL,
			intended TEXT NOT NULL,
			position INTEGER NOT NULL,
			raw_context TEXT NOT NULL,
			intended_context TEXT NOT NULL,
			iki REAL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS feature_rows (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			typed TEXT NOT NULL,
			intended TEXT NOT NULL,
			error_context TEXT NOT NULL,
			position INTEGER NOT NULL,
			iki REAL,
			shape TEXT NOT NULL,
			len_typed INTEGER NOT NULL,
			len_intended INTEGER NOT NULL,
			diff_length INTEGER NOT NULL,
			edit_distance INTEGER NOT NULL,
			error_start INTEGER NOT NULL,
			mistyped_intended TEXT NOT NULL,
			keyboard_same REAL NOT NULL,
			ngram1_typed REAL NOT NULL,
			ngram1_intended REAL NOT NULL,
			context_exhausted INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_feature_rows_shape ON feature_rows(shape);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores the header of a run and returns its id.
func (s *Store) InsertRun(ctx context.Context, run model.RunStats) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (kind, started_at, ended_at, input, language, traces, records, rows_total,
			dropped_no_error, dropped_blank, dropped_misaligned, dropped_too_long)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Kind,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		run.Input,
		run.Language,
		run.Traces,
		run.Records,
		run.Drops.Total,
		run.Drops.NoError,
		run.Drops.BlankTyped,
		run.Drops.Misaligned,
		run.Drops.TooLong,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRun records the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id int64, run model.RunStats) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, traces = ?, records = ?, rows_total = ?,
			dropped_no_error = ?, dropped_blank = ?, dropped_misaligned = ?, dropped_too_long = ?
		 WHERE id = ?`,
		run.EndedAt.Format(time.RFC3339Nano),
		run.Traces,
		run.Records,
		run.Drops.Total,
		run.Drops.NoError,
		run.Drops.BlankTyped,
		run.Drops.Misaligned,
		run.Drops.TooLong,
		id,
	)
	return err
}

// InsertRecord stores one error record of a run at position seq.
func (s *Store) InsertRecord(ctx context.Context, runID int64, seq int, rec model.ErrorRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO error_records (run_id, seq, record_id, raw_typed, intended, position, raw_context, intended_context, iki)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, seq,
		rec.ID,
		rec.RawTyped,
		rec.Intended,
		rec.Position,
		rec.RawContext,
		rec.IntendedContext,
		nullIKI(rec.IKI),
	)
	return err
}

// InsertFeatures stores the feature rows of a run in one transaction.
func (s *Store) InsertFeatures(ctx context.Context, runID int64, rows []model.FeatureRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var base int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM feature_rows WHERE run_id = ?`, runID).Scan(&base); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feature_rows (run_id, seq, record_id, typed, intended, error_context, position, iki, shape,
			len_typed, len_intended, diff_length, edit_distance, error_start, mistyped_intended,
			keyboard_same, ngram1_typed, ngram1_intended, context_exhausted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, fr := range rows {
		if _, err = stmt.ExecContext(ctx,
			runID, base+i,
			fr.ID,
			fr.Typed,
			fr.Intended,
			fr.ErrorContext,
			fr.Position,
			nullIKI(fr.IKI),
			string(fr.Shape),
			fr.LengthMisalignedTyped,
			fr.LengthMisalignedIntended,
			fr.DiffLength,
			fr.EditDistance,
			fr.ErrorStartIntended,
			mistypedIntended(fr.WordPairRow),
			fr.KeyboardSame,
			fr.NgramTyped.Unigram,
			fr.NgramIntended.Unigram,
			fr.ContextExhausted,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListRuns returns stored runs filtered by the report config, oldest first.
func (s *Store) ListRuns(ctx context.Context, cfg model.ReportConfig) ([]model.RunAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, cfg.Kind)
	}
	if cfg.RunID > 0 {
		clauses = append(clauses, "id = ?")
		args = append(args, cfg.RunID)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, kind, started_at, ended_at, input, language, traces, records, rows_total,
			dropped_no_error, dropped_blank, dropped_misaligned, dropped_too_long
		FROM runs
		WHERE %s
		ORDER BY id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunAggregate
	for rows.Next() {
		var agg model.RunAggregate
		var startedAt, endedAt string
		if err := rows.Scan(&agg.RunID, &agg.Kind, &startedAt, &endedAt, &agg.Input, &agg.Language,
			&agg.Traces, &agg.Records, &agg.Drops.Total, &agg.Drops.NoError, &agg.Drops.BlankTyped,
			&agg.Drops.Misaligned, &agg.Drops.TooLong); err != nil {
			return nil, err
		}
		if agg.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if agg.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		runs = append(runs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// LatestRun returns the id of the newest run of kind, or 0 when there is none.
func (s *Store) LatestRun(ctx context.Context, kind string) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM runs WHERE kind = ?`, kind).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// ListRecords returns the error records of a run in emission order.
func (s *Store) ListRecords(ctx context.Context, runID int64) ([]model.ErrorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, raw_typed, intended, position, raw_context, intended_context, iki
		 FROM error_records WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ErrorRecord
	for rows.Next() {
		var rec model.ErrorRecord
		var iki sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.RawTyped, &rec.Intended, &rec.Position, &rec.RawContext, &rec.IntendedContext, &iki); err != nil {
			return nil, err
		}
		rec.IKI = model.IKI{Value: iki.Float64, Valid: iki.Valid}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListFeatures returns the stored feature rows of a run. A non-empty shape filters by shape.
func (s *Store) ListFeatures(ctx context.Context, runID int64, shape model.Shape) ([]model.FeatureRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, typed, intended, error_context, position, iki, shape, len_typed, len_intended,
			diff_length, edit_distance, error_start, keyboard_same, ngram1_typed, ngram1_intended, context_exhausted
		 FROM feature_rows
		 WHERE run_id = ? AND (? = '' OR shape = ?)
		 ORDER BY seq ASC`, runID, string(shape), string(shape))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.FeatureRow
	for rows.Next() {
		var fr model.FeatureRow
		var iki sql.NullFloat64
		var shapeName string
		if err := rows.Scan(&fr.ID, &fr.Typed, &fr.Intended, &fr.ErrorContext, &fr.Position, &iki, &shapeName,
			&fr.LengthMisalignedTyped, &fr.LengthMisalignedIntended, &fr.DiffLength, &fr.EditDistance,
			&fr.ErrorStartIntended, &fr.KeyboardSame, &fr.NgramTyped.Unigram, &fr.NgramIntended.Unigram,
			&fr.ContextExhausted); err != nil {
			return nil, err
		}
		fr.IKI = model.IKI{Value: iki.Float64, Valid: iki.Valid}
		fr.Shape = model.Shape(shapeName)
		fr.ErrorStartTyped = fr.ErrorStartIntended
		result = append(result, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ShapeAggregates summarizes feature rows per shape across runs.
func (s *Store) ShapeAggregates(ctx context.Context, runIDs []int64) ([]model.ShapeAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(runIDs)
	query := fmt.Sprintf(`SELECT shape, COUNT(*), COALESCE(SUM(iki), 0), COUNT(iki),
			SUM(edit_distance), SUM(context_exhausted)
		FROM feature_rows
		WHERE run_id IN (%s)
		GROUP BY shape`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ShapeAggregate
	for rows.Next() {
		var agg model.ShapeAggregate
		var shapeName string
		if err := rows.Scan(&shapeName, &agg.Count, &agg.IKISum, &agg.IKICount, &agg.EditDistSum, &agg.ExhaustedCount); err != nil {
			return nil, err
		}
		agg.Shape = model.Shape(shapeName)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CharAggregates counts errors per mistyped intended character across runs.
func (s *Store) CharAggregates(ctx context.Context, runIDs []int64) ([]model.CharAggregate, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(runIDs)
	query := fmt.Sprintf(`SELECT mistyped_intended, COUNT(*), COALESCE(SUM(iki), 0), COUNT(iki)
		FROM feature_rows
		WHERE run_id IN (%s) AND mistyped_intended <> ''
		GROUP BY mistyped_intended`, placeholders)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CharAggregate
	for rows.Next() {
		var agg model.CharAggregate
		if err := rows.Scan(&agg.Char, &agg.Errors, &agg.IKISum, &agg.IKICount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ","), args
}

func nullIKI(iki model.IKI) sql.NullFloat64 {
	return sql.NullFloat64{Float64: iki.Value, Valid: iki.Valid}
}

func mistypedIntended(row model.WordPairRow) string {
	intended := []rune(row.Intended)
	if row.ErrorStartIntended < 0 || row.ErrorStartIntended >= len(intended) {
		return ""
	}
	return string(intended[row.ErrorStartIntended])
}

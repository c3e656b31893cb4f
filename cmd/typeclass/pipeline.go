package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/elisaF/typing-classification/internal/align"
	"github.com/elisaF/typing-classification/internal/classify"
	"github.com/elisaF/typing-classification/internal/config"
	"github.com/elisaF/typing-classification/internal/features"
	"github.com/elisaF/typing-classification/internal/ingest"
	"github.com/elisaF/typing-classification/internal/keyboard"
	"github.com/elisaF/typing-classification/internal/langmodel"
	"github.com/elisaF/typing-classification/internal/model"
	"github.com/elisaF/typing-classification/internal/store"
)

func newAlignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align <keystroke-log>",
		Short: "Align keystroke traces and write the error table",
		Args:  cobra.ExactArgs(1),
		RunE:  runAlignCmd,
	}
	cmd.Flags().StringVar(&alignLanguage, "language", defaultLanguage, "study language (selects the participant id table)")
	cmd.Flags().StringVar(&alignDelimiter, "delimiter", "", "field delimiter: comma or tab (default: by extension)")
	cmd.Flags().StringVarP(&alignOut, "out", "o", defaultErrorTable, "error table output")
	cmd.Flags().BoolVar(&alignNoStore, "no-store", false, "do not record the run in the database")
	return cmd
}

func runAlignCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadShared(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "language", &alignLanguage, fileCfg.Align.Language)
	applyStringConfig(cmd, "delimiter", &alignDelimiter, fileCfg.Align.Delimiter)

	input := args[0]
	delim, err := ingest.DelimiterFor(input, alignDelimiter)
	if err != nil {
		return err
	}
	idmap, err := config.LoadIDMap(alignLanguage)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger()
	if err != nil {
		return err
	}
	defer closeQuietly("log", logCloser)

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open keystroke log: %w", err)
	}
	defer closeQuietly("keystroke log", f)

	table, err := ingest.CreateTable(alignOut)
	if err != nil {
		return err
	}
	defer closeQuietly("error table", table)

	ctx := cmd.Context()
	run := model.RunStats{
		Kind:      model.RunAlign,
		StartedAt: time.Now(),
		Input:     filepath.Base(input),
		Language:  alignLanguage,
	}
	sinks := []align.RecordSink{table}
	var st *store.Store
	var runID int64
	if !alignNoStore {
		if st, err = openStore(); err != nil {
			return err
		}
		defer closeStore(st)
		run.EndedAt = run.StartedAt
		if runID, err = st.InsertRun(ctx, run); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		sinks = append(sinks, st.Writer(runID))
	}

	aligner := align.NewAligner(logger, sinks...)
	readErr := ingest.ReadTraces(ctx, f, ingest.Options{Delimiter: delim, IDMap: idmap}, func(tr model.KeystrokeTrace) error {
		recs, err := aligner.Process(ctx, tr)
		if err != nil {
			return err
		}
		run.Traces++
		run.Records += len(recs)
		return nil
	})

	run.EndedAt = time.Now()
	if st != nil {
		if err := st.FinishRun(ctx, runID, run); err != nil {
			logger.Error("failed to finish run", "run", runID, "err", err)
		}
	}
	if readErr != nil {
		if errors.Is(readErr, ingest.ErrUnmappedParticipant) {
			logErrln(fmt.Sprintf("participant ids are remapped for %q; use --language to select another study", alignLanguage))
		}
		return fmt.Errorf("alignment stopped after %d traces: %w", run.Traces, readErr)
	}

	logger.Info("alignment finished", "run", runID, "traces", run.Traces, "records", run.Records, "out", alignOut)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Aligned %d traces, %d error records -> %s\n", run.Traces, run.Records, alignOut); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features [error-table]",
		Short: "Classify error records and write the feature table",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFeaturesCmd,
	}
	cmd.Flags().Int64Var(&featuresRun, "run", 0, "read records of a stored align run instead of a file")
	cmd.Flags().StringVarP(&featuresOut, "out", "o", defaultFeatures, "feature table output")
	cmd.Flags().StringVar(&featuresLMFile, "lm-file", "", "character n-gram model (ARPA)")
	cmd.Flags().StringVar(&featuresSpaceToken, "space-token", langmodel.DefaultSpaceToken, "model token for a space")
	cmd.Flags().StringVar(&featuresKeyboard, "keyboard", defaultLanguage, "keyboard layout")
	cmd.Flags().IntVar(&featuresMaxDiff, "max-diff", classify.DefaultMaxDiff, "maximum context length difference")
	cmd.Flags().IntVar(&featuresCacheSize, "cache-size", defaultCacheSize, "in-process probability cache entries")
	cmd.Flags().StringVar(&featuresRedis, "redis", "", "redis address for a shared probability cache")
	cmd.Flags().StringVar(&featuresRedisTTL, "redis-ttl", defaultRedisTTL, "shared cache expiry")
	cmd.Flags().BoolVar(&featuresNoStore, "no-store", false, "do not record the run in the database")
	return cmd
}

func runFeaturesCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadShared(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "lm-file", &featuresLMFile, fileCfg.Features.LMFile)
	applyStringConfig(cmd, "space-token", &featuresSpaceToken, fileCfg.Features.SpaceToken)
	applyStringConfig(cmd, "keyboard", &featuresKeyboard, fileCfg.Features.Keyboard)
	applyIntConfig(cmd, "max-diff", &featuresMaxDiff, fileCfg.Features.MaxDiff)
	applyIntConfig(cmd, "cache-size", &featuresCacheSize, fileCfg.Features.CacheSize)
	applyStringConfig(cmd, "redis", &featuresRedis, fileCfg.Features.Redis)
	applyStringConfig(cmd, "redis-ttl", &featuresRedisTTL, fileCfg.Features.RedisTTL)
	if !cmd.Flags().Changed("keyboard") && fileCfg.Features.Keyboard == nil && fileCfg.Align.Language != nil {
		featuresKeyboard = *fileCfg.Align.Language
	}

	if err := validateFeatures(args); err != nil {
		return err
	}
	kb, err := keyboard.ForLanguage(featuresKeyboard)
	if err != nil {
		return err
	}

	logger, logCloser, err := newLogger()
	if err != nil {
		return err
	}
	defer closeQuietly("log", logCloser)

	ctx := cmd.Context()
	var st *store.Store
	if !featuresNoStore || featuresRun > 0 {
		if st, err = openStore(); err != nil {
			return err
		}
		defer closeStore(st)
	}

	input := fmt.Sprintf("run %d", featuresRun)
	var recs []model.ErrorRecord
	if len(args) == 1 {
		input = filepath.Base(args[0])
		recs, err = ingest.ReadTableFile(args[0])
	} else {
		recs, err = st.ListRecords(ctx, featuresRun)
	}
	if err != nil {
		return fmt.Errorf("failed to load error records: %w", err)
	}

	scorer, cleanup, err := buildScorer(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	run := model.RunStats{
		Kind:      model.RunFeatures,
		StartedAt: time.Now(),
		Input:     input,
		Language:  kb.Name(),
		Records:   len(recs),
	}
	rows, drops := classify.BuildRows(recs, featuresMaxDiff)
	run.Drops = drops
	logger.Info("filtered rows", "total", drops.Total, "kept", drops.Kept(),
		"no_error", drops.NoError, "blank", drops.BlankTyped, "misaligned", drops.Misaligned, "too_long", drops.TooLong)

	out, err := os.Create(featuresOut)
	if err != nil {
		return fmt.Errorf("failed to create feature table: %w", err)
	}
	defer closeQuietly("feature table", out)
	csvWriter, err := features.NewCSVWriter(out)
	if err != nil {
		return err
	}

	sinks := []features.FeatureSink{csvWriter}
	var writer *store.RunWriter
	if !featuresNoStore {
		run.EndedAt = run.StartedAt
		runID, err := st.InsertRun(ctx, run)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		writer = st.Writer(runID)
		sinks = append(sinks, writer)
	}

	assembler := features.NewAssembler(kb, scorer, logger)
	n, err := assembler.Run(ctx, rows, sinks...)
	if err != nil {
		return fmt.Errorf("feature extraction stopped after %d rows: %w", n, err)
	}
	if writer != nil {
		if err := writer.Flush(ctx); err != nil {
			return fmt.Errorf("failed to store features: %w", err)
		}
		run.EndedAt = time.Now()
		if err := st.FinishRun(ctx, writer.RunID(), run); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Classified %d of %d records -> %s\n", n, drops.Total, featuresOut); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func validateFeatures(args []string) error {
	if len(args) == 0 && featuresRun <= 0 {
		return fmt.Errorf("give an error table or --run")
	}
	if len(args) == 1 && featuresRun > 0 {
		return fmt.Errorf("give either an error table or --run, not both")
	}
	if featuresLMFile == "" {
		return fmt.Errorf("--lm-file is required")
	}
	if featuresMaxDiff < 0 {
		return fmt.Errorf("--max-diff must be >= 0")
	}
	if featuresCacheSize <= 0 {
		return fmt.Errorf("--cache-size must be > 0")
	}
	return nil
}

// buildScorer loads the language model behind an in-process cache and, when configured,
// a shared Redis cache.
func buildScorer(ctx context.Context, logger *slog.Logger) (langmodel.Scorer, func(), error) {
	lm, err := langmodel.Load(featuresLMFile, langmodel.WithSpaceToken(featuresSpaceToken))
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded language model", "file", featuresLMFile, "order", lm.Order())

	var next langmodel.Scorer = lm
	cleanup := func() {}
	if featuresRedis != "" {
		ttl, err := time.ParseDuration(featuresRedisTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --redis-ttl: %w", err)
		}
		client, err := langmodel.Dial(ctx, featuresRedis)
		if err != nil {
			return nil, nil, err
		}
		next = langmodel.NewShared(lm, client, filepath.Base(featuresLMFile), ttl)
		cleanup = func() { closeQuietly("redis", client) }
	}
	cached, err := langmodel.NewCached(next, featuresCacheSize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return cached, cleanup, nil
}

// Package main provides the CLI entrypoint for typeclass.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/elisaF/typing-classification/internal/browse"
	"github.com/elisaF/typing-classification/internal/classify"
	"github.com/elisaF/typing-classification/internal/config"
	"github.com/elisaF/typing-classification/internal/keyboard"
	"github.com/elisaF/typing-classification/internal/logging"
	"github.com/elisaF/typing-classification/internal/model"
	"github.com/elisaF/typing-classification/internal/stats"
	"github.com/elisaF/typing-classification/internal/store"
)

const (
	defaultLanguage   = "english"
	defaultErrorTable = "errors.tsv"
	defaultFeatures   = "features.csv"
	defaultCacheSize  = 100000
	defaultRedisTTL   = "24h"
	defaultTop        = 10
	defaultLogLevel   = "info"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	logFile    string

	alignLanguage  string
	alignDelimiter string
	alignOut       string
	alignNoStore   bool

	featuresRun        int64
	featuresOut        string
	featuresLMFile     string
	featuresSpaceToken string
	featuresKeyboard   string
	featuresMaxDiff    int
	featuresCacheSize  int
	featuresRedis      string
	featuresRedisTTL   string
	featuresNoStore    bool

	reportKind  string
	reportSince string
	reportLast  int
	reportRun   int64
	reportTop   int
	reportWidth int

	browseRun   int64
	browseShape string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typeclass",
		Short:         "Align keystroke logs and classify typing errors",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", config.DefaultLogPath(), "rotating log file (empty disables)")

	rootCmd.AddCommand(newAlignCmd())
	rootCmd.AddCommand(newFeaturesCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLayoutsCmd())

	return rootCmd
}

// loadShared reads the config file and applies the settings every command shares.
func loadShared(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Store.Path)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	return fileCfg, nil
}

func newLogger() (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(logging.Options{File: logFile, Level: logLevel})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, closer, nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func closeQuietly(name string, c io.Closer) {
	if cerr := c.Close(); cerr != nil {
		logErrf("failed to close %s: %v\n", name, cerr)
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print shape counts, drop counts and mistyped characters",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportKind, "kind", "", "run kind filter (align or features)")
	cmd.Flags().StringVar(&reportSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&reportLast, "last", 0, "limit to last N runs")
	cmd.Flags().Int64Var(&reportRun, "run", 0, "single run id")
	cmd.Flags().IntVar(&reportTop, "top", defaultTop, "number of mistyped characters to list")
	cmd.Flags().IntVar(&reportWidth, "width", 0, "chart width (default: terminal width)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadShared(cmd); err != nil {
		return err
	}
	var sinceTime *time.Time
	if reportSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", reportSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	switch reportKind {
	case "", model.RunAlign, model.RunFeatures:
	default:
		return fmt.Errorf("--kind must be %q or %q", model.RunAlign, model.RunFeatures)
	}
	if reportLast < 0 || reportTop < 0 {
		return fmt.Errorf("--last and --top must be >= 0")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	cfg := model.ReportConfig{
		Kind:  reportKind,
		Since: sinceTime,
		Last:  reportLast,
		RunID: reportRun,
		Top:   reportTop,
	}
	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return stats.Render(cmd.OutOrStdout(), report, stats.RenderOptions{Top: cfg.Top, Width: reportWidth})
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse classified errors",
		Args:  cobra.NoArgs,
		RunE:  runBrowseCmd,
	}
	cmd.Flags().Int64Var(&browseRun, "run", 0, "features run id (default: latest)")
	cmd.Flags().StringVar(&browseShape, "shape", "", "only show one error shape")
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadShared(cmd); err != nil {
		return err
	}
	shape, err := browse.ParseShape(browseShape)
	if err != nil {
		return fmt.Errorf("invalid --shape: %w", err)
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	program := tea.NewProgram(browse.NewModel(st, browseRun, shape), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newLayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "List keyboard layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range keyboard.Languages() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			}
			return nil
		},
	}
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typeclass configuration
# Uncomment a value to enable it. CLI flags override config values.

[align]
# language = %q       # Participant id table and keyboard layout
# delimiter = "tab"          # Keystroke log delimiter (default: by file extension)

[features]
# lm-file = "/path/to/chars.arpa"  # Character n-gram model in ARPA format
# space-token = "<space>"    # Model token for a space
# keyboard = %q       # Keyboard layout (default: the align language)
# max-diff = %d              # Drop rows whose contexts differ by more runes
# cache-size = %d        # In-process probability cache entries
# redis = "localhost:6379"   # Shared probability cache
# redis-ttl = %q            # Shared cache expiry

[store]
# path = %q

[log]
# file = %q
# level = %q
`,
		defaultLanguage,
		defaultLanguage,
		classify.DefaultMaxDiff,
		defaultCacheSize,
		defaultRedisTTL,
		config.DefaultDBPath(),
		config.DefaultLogPath(),
		defaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

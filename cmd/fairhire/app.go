package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nao1215/fairhire/internal/config"
	"github.com/nao1215/fairhire/internal/database"
	fhlog "github.com/nao1215/fairhire/internal/log"
	"github.com/nao1215/fairhire/internal/metrics"
	"github.com/nao1215/fairhire/internal/pipeline"
	"github.com/nao1215/fairhire/internal/report"
	"github.com/nao1215/fairhire/internal/store"
)

// loadConfig builds the configuration shared by every command:
// defaults, then the configuration file, then the environment, then the
// global flags. Command specific flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly requested file must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := f.Apply(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(nil)

	if cmd.Flags().Changed("store") {
		if cfg.Store, err = cmd.Flags().GetString("store"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the CLI logger. Output goes to the command's stderr
// so that reports on stdout stay machine readable.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	return fhlog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// openStore opens the configured result store backend wrapped with metrics.
// m may be nil.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (store.Store, error) {
	var st store.Store
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		st = db
	case config.StoreRedis:
		rs, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w",
				fhlog.MaskURLPasswords(cfg.RedisURL), err)
		}
		st = rs
	case config.StoreMemory:
		st = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.Store)
	}
	return store.WithMetrics(st, m), nil
}

// stepConfig translates the configuration into the audit chain settings.
func stepConfig(cfg *config.Config) pipeline.StepConfig {
	c := pipeline.DefaultStepConfig()
	c.Threshold = cfg.Threshold
	c.ExplainInstances = cfg.ExplainInstances
	c.ExplainFeatures = cfg.ExplainFeatures
	c.ExplainSamples = cfg.ExplainSamples
	c.ExplainSeed = cfg.ExplainSeed
	c.ExplainClassNames = slices.Clone(cfg.ExplainClassNames)
	return c
}

// openOutput returns the report destination: the file at path, or the
// command's stdout when path is empty. The returned close function is never nil.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports describe applicants, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newRecordWriter selects the report writer for the requested format.
// Colour is only used when writing plain text to a terminal.
func newRecordWriter(out io.Writer, jsonReport, markdownReport, verbose bool) report.Writer {
	switch {
	case jsonReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out,
			report.WithVerbose(verbose),
			report.WithColor(isTerminal(out)),
		)
	}
}

// isTerminal reports whether w is a character device such as a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// addFormatFlags registers the --json and --markdown output flags.
func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
}

// getFormatFlags returns the values of the --json and --markdown flags.
func getFormatFlags(cmd *cobra.Command) (jsonReport, markdownReport bool, err error) {
	if jsonReport, err = cmd.Flags().GetBool("json"); err != nil {
		return false, false, err
	}
	if markdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return false, false, err
	}
	if jsonReport && markdownReport {
		return false, false, config.ErrConflictingReportFormats
	}
	return jsonReport, markdownReport, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/fairhire/internal/config"
	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/pipeline"
	"github.com/nao1215/fairhire/internal/predictor"
	"github.com/nao1215/fairhire/internal/store"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [dataset.csv]...",
		Short: "Audit hiring datasets for bias",
		Long: `Audit runs the bias checks over one or more CSV datasets.

Every dataset needs a header row and numeric cells. The label column holds
the hiring outcome (1 = hired, 0 = rejected) and the protected attributes
identify the sensitive groups.

Without --model only the data bias check runs. With --model the screening
model's predictions are checked for demographic parity and equalized odds,
and the decisions for the first candidates are explained.

Multiple datasets are audited concurrently as independent audits.
Completed audits are saved to the result store unless --no-save is given.

Examples:
  # Audit a dataset with the default gender/hired configuration
  fairhire audit applicants.csv

  # Audit a screening model as well
  fairhire audit --model screening.yaml applicants.csv

  # Use a different sensitive attribute and cohorts
  fairhire audit --protected age_group --privileged age_group=1 --unprivileged age_group=0 applicants.csv

  # Write a Markdown report to a file
  fairhire audit --markdown -o reports/applicants.md applicants.csv

Model file example (logistic model, P(hire) = sigmoid(intercept + sum(coef * feature))):
  name: screening
  intercept: -1.5
  coefficients:
    experience: 0.4
    gender: 0.8`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAuditCmd,
	}

	// Audit configuration flags
	cmd.Flags().StringSliceP("protected", "p", nil,
		"Protected attribute columns; the first is used for model bias (default: gender)")
	cmd.Flags().StringArray("privileged", nil,
		"Privileged group as key=value[,key=value] (repeatable, default: gender=1)")
	cmd.Flags().StringArray("unprivileged", nil,
		"Unprivileged group as key=value[,key=value] (repeatable, default: gender=0)")
	cmd.Flags().StringP("label", "l", config.DefaultLabelColumn,
		"Outcome column")
	cmd.Flags().Float64P("threshold", "t", config.DefaultThreshold,
		"Bias verdict threshold on the absolute metric value")
	cmd.Flags().String("model", "",
		"Linear screening model file (YAML)")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent audits")

	// Report flags
	addFormatFlags(cmd)
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not save completed audits to the result store")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildAuditConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)

	var predict model.PredictFunc
	modelPath, err := cmd.Flags().GetString("model")
	if err != nil {
		return err
	}
	if modelPath != "" {
		m, err := predictor.Load(modelPath)
		if err != nil {
			return fmt.Errorf("failed to load model: %w", err)
		}
		predict = m.PredictFunc()
		logger.Info("model loaded", "path", modelPath, "name", m.Name)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAudits(ctx, cmd, cfg, newRequests(cfg, args, predict), logger)
}

// buildAuditConfig loads the shared configuration and applies the audit flags
// the user set explicitly, so unset flags keep the configuration file values.
func buildAuditConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if flags.Changed("protected") {
		if cfg.ProtectedAttributes, err = flags.GetStringSlice("protected"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("privileged") {
		exprs, err := flags.GetStringArray("privileged")
		if err != nil {
			return nil, err
		}
		if cfg.PrivilegedGroups, err = config.ParseGroups(exprs); err != nil {
			return nil, fmt.Errorf("invalid --privileged: %w", err)
		}
	}
	if flags.Changed("unprivileged") {
		exprs, err := flags.GetStringArray("unprivileged")
		if err != nil {
			return nil, err
		}
		if cfg.UnprivilegedGroups, err = config.ParseGroups(exprs); err != nil {
			return nil, fmt.Errorf("invalid --unprivileged: %w", err)
		}
	}
	if flags.Changed("label") {
		if cfg.LabelColumn, err = flags.GetString("label"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("threshold") {
		if cfg.Threshold, err = flags.GetFloat64("threshold"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, cfg.MarkdownReport, err = getFormatFlags(cmd); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoSave, err = flags.GetBool("no-save"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRequests creates one request per dataset, each with a fresh audit ID.
// The records built from them copy the shared configuration slices.
func newRequests(cfg *config.Config, datasets []string, predict model.PredictFunc) []pipeline.Request {
	reqs := make([]pipeline.Request, 0, len(datasets))
	for _, location := range datasets {
		reqs = append(reqs, pipeline.Request{
			ID:                  uuid.NewString(),
			DatasetLocation:     location,
			ProtectedAttributes: cfg.ProtectedAttributes,
			PrivilegedGroups:    cfg.PrivilegedGroups,
			UnprivilegedGroups:  cfg.UnprivilegedGroups,
			LabelColumn:         cfg.LabelColumn,
			PredictFn:           predict,
		})
	}
	return reqs
}

// runAudits audits every request through the batch processor, writes each
// report as it completes and saves completed audits.
func runAudits(ctx context.Context, cmd *cobra.Command, cfg *config.Config, reqs []pipeline.Request, logger *slog.Logger) error {
	var st store.Store
	if !cfg.NoSave {
		var err error
		st, err = openStore(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	out, closeOut, err := openOutput(cmd, cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := newRecordWriter(out, cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose)
	stderr := cmd.ErrOrStderr()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.NewDefault(stepConfig(cfg), pipeline.WithLogger(logger))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()

	// Reports are written one at a time so they never interleave.
	var (
		mu     sync.Mutex
		errs   []error
		failed int
	)
	batchErr := bp.ProcessBatchWithCallback(ctx, reqs, func(res pipeline.BatchResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		location := res.Request.DatasetLocation
		if res.Err != nil {
			failed++
			errs = append(errs, fmt.Errorf("audit of %s failed: %w", location, res.Err))
			fmt.Fprintf(stderr, "[%d/%d] Audit failed: %s: %v\n", index+1, len(reqs), location, res.Err)
			return
		}

		if _, err := writer.Write(res.Record); err != nil {
			errs = append(errs, fmt.Errorf("failed to write report for %s: %w", location, err))
		}

		if st == nil {
			fmt.Fprintf(stderr, "[%d/%d] Audit completed: %s\n", index+1, len(reqs), location)
			return
		}
		if err := st.Save(ctx, res.Record.ID, res.Record, cfg.TTL); err != nil {
			logger.Error("failed to save audit", "audit", res.Record.ID, "error", err)
			errs = append(errs, fmt.Errorf("failed to save audit of %s: %w", location, err))
			return
		}
		fmt.Fprintf(stderr, "[%d/%d] Audit completed: %s (saved as %s)\n", index+1, len(reqs), location, res.Record.ID)
	})

	if len(reqs) > 1 {
		fmt.Fprintf(stderr, "\n%d of %d audits completed in %s\n",
			len(reqs)-failed, len(reqs), time.Since(startTime).Round(time.Millisecond))
	}

	if batchErr != nil {
		return batchErr
	}
	return errors.Join(errs...)
}

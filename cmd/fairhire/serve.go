package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nao1215/fairhire/internal/config"
	fhlog "github.com/nao1215/fairhire/internal/log"
	"github.com/nao1215/fairhire/internal/metrics"
	"github.com/nao1215/fairhire/internal/pipeline"
	"github.com/nao1215/fairhire/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit HTTP API",
		Long: `Serve starts the HTTP API.

Endpoints:
  POST   /api/v1/audit        Run an audit (multipart: file, model, protected_attrs,
                              privileged_groups, unprivileged_groups, label_col)
  GET    /api/v1/audit/{id}   Retrieve a saved audit
  DELETE /api/v1/audit/{id}   Delete a saved audit
  GET    /api/v1/audits       List saved audit IDs (?prefix=)
  GET    /health              Liveness check
  GET    /metrics             Prometheus metrics

Logs are written to stderr as JSON. The server shuts down gracefully on
SIGINT or SIGTERM.

Examples:
  # Serve on the default address (:8000) with the SQLite store
  fairhire serve

  # Serve on another port with a Redis store
  REDIS_URL=redis://localhost:6379/0 fairhire serve --store redis --addr :9000

  # Upload a dataset
  curl -F file=@applicants.csv http://localhost:8000/api/v1/audit`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultAddr,
		"Listen address")
	cmd.Flags().Int64("max-upload-size", config.DefaultMaxUploadSize,
		"Maximum dataset upload size in bytes")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := fhlog.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// buildServeConfig loads the shared configuration and applies the serve flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("addr") {
		if cfg.Addr, err = cmd.Flags().GetString("addr"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("max-upload-size") {
		if cfg.MaxUploadSize, err = cmd.Flags().GetInt64("max-upload-size"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// serve wires the store, pipeline and metrics into the HTTP server and
// blocks until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	st, err := openStore(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer st.Close()

	// Steps hold no per-run state, so one pipeline serves concurrent requests.
	p := pipeline.NewDefault(stepConfig(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	)

	srv := server.New(st, p,
		server.WithLogger(logger),
		server.WithMetrics(m, reg),
		server.WithAuditDefaults(server.AuditDefaults{
			ProtectedAttributes: cfg.ProtectedAttributes,
			PrivilegedGroups:    cfg.PrivilegedGroups,
			UnprivilegedGroups:  cfg.UnprivilegedGroups,
			LabelColumn:         cfg.LabelColumn,
		}),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
		server.WithTTL(cfg.TTL),
	)

	logger.Info("starting audit server",
		"addr", cfg.Addr,
		"store", cfg.Store,
		"redis_url", cfg.RedisURL,
	)
	return srv.ListenAndServe(ctx, cfg.Addr, cfg.ShutdownTimeout)
}

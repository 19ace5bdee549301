package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/fairhire/internal/metrics"
	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/pipeline"
	"github.com/nao1215/fairhire/internal/store"
)

const (
	// DefaultMaxUploadSize caps uploaded datasets.
	DefaultMaxUploadSize = 10 << 20

	// DefaultPurgeInterval is how often expired audits are purged while serving.
	DefaultPurgeInterval = time.Hour

	// formOverhead is allowed on top of the dataset cap for the other form fields.
	formOverhead = 1 << 20
)

// Runner runs one audit. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*model.AuditRecord, error)
}

// AuditDefaults fill in the form fields a client leaves out.
type AuditDefaults struct {
	ProtectedAttributes []string
	PrivilegedGroups    []model.Group
	UnprivilegedGroups  []model.Group
	LabelColumn         string
}

// DefaultAuditDefaults returns the gender/hired defaults.
func DefaultAuditDefaults() AuditDefaults {
	return AuditDefaults{
		ProtectedAttributes: []string{"gender"},
		PrivilegedGroups:    []model.Group{{"gender": 1}},
		UnprivilegedGroups:  []model.Group{{"gender": 0}},
		LabelColumn:         "hired",
	}
}

// Server serves the audit API.
type Server struct {
	store         store.Store
	runner        Runner
	logger        *slog.Logger
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	defaults      AuditDefaults
	maxUploadSize int64
	ttl           time.Duration
	tempDir       string
	newID         func() string
	purgeInterval time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request metrics and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithAuditDefaults sets the defaults for omitted form fields.
func WithAuditDefaults(d AuditDefaults) Option {
	return func(s *Server) {
		s.defaults = d
	}
}

// WithMaxUploadSize caps uploaded datasets, in bytes.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithTTL sets the retention of stored audits. Zero means the store default.
func WithTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.ttl = ttl
	}
}

// WithTempDir sets where uploads are spooled. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(s *Server) {
		s.tempDir = dir
	}
}

// WithIDGenerator replaces the random UUID audit ids.
func WithIDGenerator(f func() string) Option {
	return func(s *Server) {
		s.newID = f
	}
}

// WithPurgeInterval sets how often expired audits are purged. Zero disables purging.
func WithPurgeInterval(d time.Duration) Option {
	return func(s *Server) {
		s.purgeInterval = d
	}
}

// New creates a Server that runs audits with runner and keeps them in st.
func New(st store.Store, runner Runner, opts ...Option) *Server {
	s := &Server{
		store:         st,
		runner:        runner,
		defaults:      DefaultAuditDefaults(),
		maxUploadSize: DefaultMaxUploadSize,
		newID:         uuid.NewString,
		purgeInterval: DefaultPurgeInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/audit", s.createAudit).Methods(http.MethodPost)
	api.HandleFunc("/audit/{id}", s.getAudit).Methods(http.MethodGet)
	api.HandleFunc("/audit/{id}", s.deleteAudit).Methods(http.MethodDelete)
	api.HandleFunc("/audits", s.listAudits).Methods(http.MethodGet)

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})
	return router
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.purgeInterval > 0 {
		go s.purgeLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx, s.store)
			if err != nil {
				s.logger.Warn("failed to purge expired audits", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("purged expired audits", "count", n)
			}
		}
	}
}

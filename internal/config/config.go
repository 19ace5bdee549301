package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/fairhire/internal/model"
)

// Result store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "fairhire"

	// DefaultStore keeps audits in a local SQLite file so the CLI works
	// without any running service.
	DefaultStore = StoreSQLite

	// DefaultRedisURL points at a local Redis on database 0.
	DefaultRedisURL = "redis://localhost:6379/0"

	// DefaultTTL is how long a stored audit stays retrievable (90 days).
	DefaultTTL = 90 * 24 * time.Hour

	// DefaultThreshold is the bias verdict threshold on absolute metric values.
	DefaultThreshold = 0.1

	// DefaultExplainInstances is the number of leading rows explained per audit.
	DefaultExplainInstances = 3

	// DefaultExplainFeatures is the number of features kept per explanation.
	DefaultExplainFeatures = 5

	// DefaultExplainSamples is the number of perturbations per explanation.
	DefaultExplainSamples = 1000

	// DefaultExplainSeed seeds the explainer so reports are reproducible.
	DefaultExplainSeed uint64 = 1

	// DefaultExplainNegativeClass and DefaultExplainPositiveClass name the
	// outcomes in explanations.
	DefaultExplainNegativeClass = "Reject"
	DefaultExplainPositiveClass = "Hire"

	// DefaultAddr is the listen address of the HTTP server.
	DefaultAddr = ":8000"

	// DefaultMaxUploadSize caps dataset uploads at 10 MiB.
	DefaultMaxUploadSize = 10 << 20

	// DefaultBatchSize is the number of audits run concurrently by the CLI.
	DefaultBatchSize = 4

	// DefaultShutdownTimeout bounds graceful server shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultLabelColumn is the outcome column of hiring datasets.
	DefaultLabelColumn = "hired"

	// DefaultProtectedAttribute is the sensitive column used when none is given.
	DefaultProtectedAttribute = "gender"
)

// Config holds all configuration options of fairhire.
type Config struct {
	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit configuration file. When empty,
	// .fairhire is searched in the current and home directories.
	ConfigFilePath string

	// Store selects the result store backend: sqlite, redis or memory.
	Store string

	// RedisURL is the connection URL of the redis backend.
	RedisURL string

	// DBDir is the directory of the sqlite backend.
	// Defaults to the XDG data directory (~/.local/share/fairhire on Linux).
	DBDir string

	// TTL is how long stored audits stay retrievable.
	TTL time.Duration

	// ProtectedAttributes are the sensitive columns. The first is used by
	// the model bias analysis.
	ProtectedAttributes []string

	// PrivilegedGroups and UnprivilegedGroups define the compared cohorts.
	PrivilegedGroups   []model.Group
	UnprivilegedGroups []model.Group

	// LabelColumn is the outcome column.
	LabelColumn string

	// Threshold is the verdict threshold of both bias analyses.
	Threshold float64

	ExplainInstances int
	ExplainFeatures  int
	ExplainSamples   int
	ExplainSeed      uint64

	// ExplainClassNames names the outcomes: [negative, positive].
	ExplainClassNames []string

	// Addr is the HTTP listen address.
	Addr string

	// MaxUploadSize caps uploaded datasets, in bytes.
	MaxUploadSize int64

	// ShutdownTimeout bounds graceful server shutdown.
	ShutdownTimeout time.Duration

	// BatchSize is the number of audits run concurrently.
	BatchSize int

	// JSONReport and MarkdownReport select the CLI output format.
	// They are mutually exclusive; neither means the plain text format.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// NoSave skips writing completed audits to the result store.
	NoSave bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Store:               DefaultStore,
		RedisURL:            DefaultRedisURL,
		DBDir:               XDGDataDir(),
		TTL:                 DefaultTTL,
		ProtectedAttributes: []string{DefaultProtectedAttribute},
		PrivilegedGroups:    []model.Group{{DefaultProtectedAttribute: 1}},
		UnprivilegedGroups:  []model.Group{{DefaultProtectedAttribute: 0}},
		LabelColumn:         DefaultLabelColumn,
		Threshold:           DefaultThreshold,
		ExplainInstances:    DefaultExplainInstances,
		ExplainFeatures:     DefaultExplainFeatures,
		ExplainSamples:      DefaultExplainSamples,
		ExplainSeed:         DefaultExplainSeed,
		ExplainClassNames:   []string{DefaultExplainNegativeClass, DefaultExplainPositiveClass},
		Addr:                DefaultAddr,
		MaxUploadSize:       DefaultMaxUploadSize,
		ShutdownTimeout:     DefaultShutdownTimeout,
		BatchSize:           DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for fairhire.
// On Linux: ~/.local/share/fairhire
// On macOS: ~/Library/Application Support/fairhire
// On Windows: %LOCALAPPDATA%\fairhire
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fairhire.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBDir == "" {
			return ErrMissingDBDir
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	case StoreMemory:
	default:
		return ErrUnknownStore
	}

	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	if len(c.ProtectedAttributes) == 0 || slices.Contains(c.ProtectedAttributes, "") {
		return ErrNoProtectedAttribute
	}
	if len(c.PrivilegedGroups) == 0 || len(c.UnprivilegedGroups) == 0 {
		return ErrNoGroups
	}
	if c.LabelColumn == "" {
		return ErrNoLabelColumn
	}

	// Bias metrics are differences of rates, so they live in [-1, 1].
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return ErrInvalidThreshold
	}

	if c.ExplainInstances <= 0 || c.ExplainFeatures <= 0 || c.ExplainSamples < 2 {
		return ErrInvalidExplainSettings
	}
	if len(c.ExplainClassNames) != 2 || slices.Contains(c.ExplainClassNames, "") {
		return ErrInvalidClassNames
	}
	if c.MaxUploadSize <= 0 {
		return ErrInvalidMaxUploadSize
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/fairhire/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".fairhire"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .fairhire configuration file.
// Zero values leave the corresponding setting untouched.
type File struct {
	Store   StoreSection   `yaml:"store,omitempty"`
	Audit   AuditSection   `yaml:"audit,omitempty"`
	Explain ExplainSection `yaml:"explain,omitempty"`
	Server  ServerSection  `yaml:"server,omitempty"`

	// BatchSize is the number of audits run concurrently by the CLI.
	BatchSize int `yaml:"batch_size,omitempty"`
}

// StoreSection configures the result store.
type StoreSection struct {
	Backend  string `yaml:"backend,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty"`
	DBDir    string `yaml:"db_dir,omitempty"`

	// TTL is a Go duration string such as "2160h".
	TTL string `yaml:"ttl,omitempty"`
}

// AuditSection holds the default audit configuration.
type AuditSection struct {
	ProtectedAttributes []string      `yaml:"protected_attributes,omitempty"`
	PrivilegedGroups    []model.Group `yaml:"privileged_groups,omitempty"`
	UnprivilegedGroups  []model.Group `yaml:"unprivileged_groups,omitempty"`
	LabelColumn         string        `yaml:"label_column,omitempty"`
	Threshold           float64       `yaml:"threshold,omitempty"`
}

// ExplainSection tunes the explainer.
type ExplainSection struct {
	Instances int    `yaml:"instances,omitempty"`
	Features  int    `yaml:"features,omitempty"`
	Samples   int    `yaml:"samples,omitempty"`
	Seed      uint64 `yaml:"seed,omitempty"`
	// ClassNames names the outcomes: [negative, positive].
	ClassNames []string `yaml:"class_names,omitempty"`
}

// ServerSection configures the HTTP server.
type ServerSection struct {
	Addr          string `yaml:"addr,omitempty"`
	MaxUploadSize int64  `yaml:"max_upload_size,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return ParseConfigFile(data)
}

// ParseConfigFile parses configuration file content. Unknown keys are errors
// so that typos do not silently fall back to defaults.
func ParseConfigFile(data []byte) (*File, error) {
	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .fairhire in the current directory
// 3. Look for .fairhire in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies every setting present in the file into c.
func (f *File) Apply(c *Config) error {
	if f.Store.Backend != "" {
		c.Store = f.Store.Backend
	}
	if f.Store.RedisURL != "" {
		c.RedisURL = f.Store.RedisURL
	}
	if f.Store.DBDir != "" {
		c.DBDir = f.Store.DBDir
	}
	if f.Store.TTL != "" {
		ttl, err := time.ParseDuration(f.Store.TTL)
		if err != nil {
			return fmt.Errorf("invalid store.ttl %q: %w", f.Store.TTL, err)
		}
		c.TTL = ttl
	}

	if len(f.Audit.ProtectedAttributes) > 0 {
		c.ProtectedAttributes = slices.Clone(f.Audit.ProtectedAttributes)
	}
	if len(f.Audit.PrivilegedGroups) > 0 {
		c.PrivilegedGroups = slices.Clone(f.Audit.PrivilegedGroups)
	}
	if len(f.Audit.UnprivilegedGroups) > 0 {
		c.UnprivilegedGroups = slices.Clone(f.Audit.UnprivilegedGroups)
	}
	if f.Audit.LabelColumn != "" {
		c.LabelColumn = f.Audit.LabelColumn
	}
	if f.Audit.Threshold != 0 {
		c.Threshold = f.Audit.Threshold
	}

	if f.Explain.Instances != 0 {
		c.ExplainInstances = f.Explain.Instances
	}
	if f.Explain.Features != 0 {
		c.ExplainFeatures = f.Explain.Features
	}
	if f.Explain.Samples != 0 {
		c.ExplainSamples = f.Explain.Samples
	}
	if f.Explain.Seed != 0 {
		c.ExplainSeed = f.Explain.Seed
	}
	if len(f.Explain.ClassNames) > 0 {
		c.ExplainClassNames = slices.Clone(f.Explain.ClassNames)
	}

	if f.Server.Addr != "" {
		c.Addr = f.Server.Addr
	}
	if f.Server.MaxUploadSize != 0 {
		c.MaxUploadSize = f.Server.MaxUploadSize
	}
	if f.BatchSize != 0 {
		c.BatchSize = f.BatchSize
	}
	return nil
}

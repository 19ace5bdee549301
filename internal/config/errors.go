package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrUnknownStore is returned when the store backend is not sqlite, redis or memory.
	ErrUnknownStore = errors.New("unknown store backend: must be sqlite, redis or memory")

	// ErrMissingDBDir is returned when the sqlite backend has no directory.
	ErrMissingDBDir = errors.New("sqlite store needs a database directory")

	// ErrMissingRedisURL is returned when the redis backend has no URL.
	ErrMissingRedisURL = errors.New("redis store needs a redis URL")

	// ErrInvalidTTL is returned when the retention period is not positive.
	ErrInvalidTTL = errors.New("invalid ttl: must be positive")

	// ErrNoProtectedAttribute is returned when no usable protected attribute is configured.
	ErrNoProtectedAttribute = errors.New("at least one non-empty protected attribute is required")

	// ErrNoGroups is returned when a cohort definition is missing.
	ErrNoGroups = errors.New("privileged and unprivileged groups are required")

	// ErrNoLabelColumn is returned when the label column is empty.
	ErrNoLabelColumn = errors.New("label column is required")

	// ErrInvalidThreshold is returned when the verdict threshold is outside (0, 1).
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 0 and 1 (exclusive)")

	// ErrInvalidExplainSettings is returned when the explainer settings cannot work.
	ErrInvalidExplainSettings = errors.New("invalid explainer settings: instances and features must be positive and samples at least 2")

	// ErrInvalidClassNames is returned when the outcome names are not exactly two non-empty names.
	ErrInvalidClassNames = errors.New("invalid class names: exactly two non-empty names are required")

	// ErrInvalidMaxUploadSize is returned when the upload cap is not positive.
	ErrInvalidMaxUploadSize = errors.New("invalid max upload size: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies audit failures so callers can tell bad input data
// from bad configuration from an internal collaborator error.
type ErrorKind int

const (
	// KindUnknown is used for errors that were not classified.
	KindUnknown ErrorKind = iota

	// KindDataUnavailable means the dataset could not be loaded or parsed.
	KindDataUnavailable

	// KindCollaboratorFailure means a metric, explanation or report call failed.
	KindCollaboratorFailure

	// KindRecordNotFound means a stored audit does not exist or has expired.
	KindRecordNotFound

	// KindConfigurationInvalid means the attribute/group configuration is malformed.
	KindConfigurationInvalid
)

// Sentinel errors, one per kind. An *Error matches its kind's sentinel with errors.Is.
var (
	ErrDataUnavailable      = errors.New("data unavailable")
	ErrCollaboratorFailure  = errors.New("collaborator failure")
	ErrRecordNotFound       = errors.New("audit record not found")
	ErrConfigurationInvalid = errors.New("configuration invalid")
)

// String returns a short machine-friendly name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindDataUnavailable:
		return "DataUnavailable"
	case KindCollaboratorFailure:
		return "CollaboratorFailure"
	case KindRecordNotFound:
		return "RecordNotFound"
	case KindConfigurationInvalid:
		return "ConfigurationInvalid"
	default:
		return "Unknown"
	}
}

// sentinel returns the sentinel error for the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindDataUnavailable:
		return ErrDataUnavailable
	case KindCollaboratorFailure:
		return ErrCollaboratorFailure
	case KindRecordNotFound:
		return ErrRecordNotFound
	case KindConfigurationInvalid:
		return ErrConfigurationInvalid
	default:
		return nil
	}
}

// Error is a classified audit failure.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op names the operation that failed (e.g. "load dataset").
	Op string

	// Err is the underlying cause. May be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Op, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// DataUnavailable wraps err as a dataset loading failure.
func DataUnavailable(op string, err error) error {
	return &Error{Kind: KindDataUnavailable, Op: op, Err: err}
}

// CollaboratorFailure wraps err as a collaborator failure.
func CollaboratorFailure(op string, err error) error {
	return &Error{Kind: KindCollaboratorFailure, Op: op, Err: err}
}

// ConfigurationInvalid reports a malformed configuration with a descriptive message.
func ConfigurationInvalid(format string, args ...any) error {
	return &Error{Kind: KindConfigurationInvalid, Op: fmt.Sprintf(format, args...)}
}

// RecordNotFound reports that the audit with the given id is absent.
func RecordNotFound(id string) error {
	return &Error{Kind: KindRecordNotFound, Op: "audit " + id}
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

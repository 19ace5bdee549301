package model

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

// TestErrorKinds tests error classification and matching.
func TestErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		kind     ErrorKind
		sentinel error
	}{
		{
			name:     "data unavailable",
			err:      DataUnavailable("load dataset", os.ErrNotExist),
			kind:     KindDataUnavailable,
			sentinel: ErrDataUnavailable,
		},
		{
			name:     "collaborator failure",
			err:      CollaboratorFailure("data bias analysis", errors.New("column missing")),
			kind:     KindCollaboratorFailure,
			sentinel: ErrCollaboratorFailure,
		},
		{
			name:     "configuration invalid",
			err:      ConfigurationInvalid("protected attributes must not be empty"),
			kind:     KindConfigurationInvalid,
			sentinel: ErrConfigurationInvalid,
		},
		{
			name:     "record not found",
			err:      RecordNotFound("abc"),
			kind:     KindRecordNotFound,
			sentinel: ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, got)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected error to match %v", tt.sentinel)
			}

			wrapped := fmt.Errorf("step failed: %w", tt.err)
			if got := KindOf(wrapped); got != tt.kind {
				t.Errorf("expected wrapped kind %v, got %v", tt.kind, got)
			}
		})
	}

	t.Run("keeps the underlying cause", func(t *testing.T) {
		t.Parallel()

		err := DataUnavailable("load dataset", os.ErrNotExist)
		if !errors.Is(err, os.ErrNotExist) {
			t.Error("expected error to match os.ErrNotExist")
		}
		if !strings.Contains(err.Error(), "load dataset") {
			t.Errorf("expected message to name the operation, got %q", err.Error())
		}
	})

	t.Run("unclassified errors are unknown", func(t *testing.T) {
		t.Parallel()

		if got := KindOf(errors.New("boom")); got != KindUnknown {
			t.Errorf("expected KindUnknown, got %v", got)
		}
		if KindUnknown.String() != "Unknown" {
			t.Errorf("expected 'Unknown', got %q", KindUnknown.String())
		}
	})
}

package pipeline

import (
	"slices"
	"time"

	"github.com/nao1215/fairhire/internal/model"
)

// Request holds the caller inputs of one audit run.
type Request struct {
	// ID is copied to the record. It may be empty when the caller assigns
	// the identifier after the run.
	ID string

	DatasetLocation     string
	ProtectedAttributes []string
	PrivilegedGroups    []model.Group
	UnprivilegedGroups  []model.Group
	LabelColumn         string

	// PredictFn is optional. Without it the model bias and explainer steps skip.
	PredictFn model.PredictFunc
}

// Validate checks the attribute and group configuration before any step runs.
// Every failure is a ConfigurationInvalid error.
func (r Request) Validate() error {
	if r.DatasetLocation == "" {
		return model.ConfigurationInvalid("dataset location is required")
	}
	if len(r.ProtectedAttributes) == 0 {
		return model.ConfigurationInvalid("at least one protected attribute is required")
	}
	for i, attr := range r.ProtectedAttributes {
		if attr == "" {
			return model.ConfigurationInvalid("protected attribute %d is empty", i+1)
		}
		if slices.Contains(r.ProtectedAttributes[:i], attr) {
			return model.ConfigurationInvalid("protected attribute %q is listed twice", attr)
		}
	}
	if r.LabelColumn == "" {
		return model.ConfigurationInvalid("label column is required")
	}
	if slices.Contains(r.ProtectedAttributes, r.LabelColumn) {
		return model.ConfigurationInvalid("label column %q cannot also be a protected attribute", r.LabelColumn)
	}
	if err := r.validateGroups("privileged", r.PrivilegedGroups); err != nil {
		return err
	}
	return r.validateGroups("unprivileged", r.UnprivilegedGroups)
}

func (r Request) validateGroups(kind string, groups []model.Group) error {
	if len(groups) == 0 {
		return model.ConfigurationInvalid("at least one %s group is required", kind)
	}
	for i, g := range groups {
		if len(g) == 0 {
			return model.ConfigurationInvalid("%s group %d is empty", kind, i+1)
		}
		for attr := range g {
			if !slices.Contains(r.ProtectedAttributes, attr) {
				return model.ConfigurationInvalid("%s group %d uses %q which is not a protected attribute", kind, i+1, attr)
			}
		}
	}
	return nil
}

// Record builds the pending record for this request.
func (r Request) Record(createdAt time.Time) *model.AuditRecord {
	rec := model.NewAuditRecord(model.RecordParams{
		DatasetLocation:     r.DatasetLocation,
		ProtectedAttributes: r.ProtectedAttributes,
		PrivilegedGroups:    r.PrivilegedGroups,
		UnprivilegedGroups:  r.UnprivilegedGroups,
		LabelColumn:         r.LabelColumn,
		PredictFn:           r.PredictFn,
		CreatedAt:           createdAt,
	})
	rec.ID = r.ID
	return rec
}

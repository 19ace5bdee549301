package model

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Group is a predicate over protected attributes. A row belongs to the group
// when every key equals the given value. It is consumed opaquely by the data
// bias analysis.
type Group map[string]float64

// FeatureMatrix is a dense table of numeric features with named columns.
// Rows[i][j] is the value of Columns[j] for row i.
type FeatureMatrix struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// NumRows returns the number of rows in the matrix.
func (m FeatureMatrix) NumRows() int {
	return len(m.Rows)
}

// PredictFunc is a model's prediction function.
// It returns one probability vector per input row, indexed by class
// (class 0 is the unfavourable outcome, class 1 the favourable one).
// A single-column result is read as the probability of the favourable class.
type PredictFunc func(ctx context.Context, features FeatureMatrix) ([][]float64, error)

// Finding is one bias-detection verdict.
type Finding struct {
	// Type names the analysis that produced the finding (e.g. "Data Bias").
	Type string `json:"type"`

	// IsBiased is the verdict.
	IsBiased bool `json:"is_biased"`

	// Summary is a human-readable one-line verdict.
	Summary string `json:"summary"`

	// Metrics holds the raw statistics that produced the verdict.
	Metrics map[string]float64 `json:"metrics"`
}

// FeatureWeight is a single (feature, weight) pair of an explanation.
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Explanation is a local explanation of one prediction.
// The pipeline treats it as an opaque payload; only reports interpret it.
type Explanation struct {
	// Row is the index of the explained instance in the dataset.
	Row int `json:"row"`

	// Features lists the most influential features ordered by |weight|.
	Features []FeatureWeight `json:"features"`

	// Score is the fidelity (weighted R²) of the local surrogate model.
	Score float64 `json:"score"`

	// PredictedProbabilities is the model output for the explained instance.
	PredictedProbabilities []float64 `json:"predicted_probabilities"`

	// PredictedClass names the most probable outcome, e.g. "Hire".
	PredictedClass string `json:"predicted_class,omitempty"`
}

// AuditRecord is the mutable value carried through the audit pipeline.
//
// A record is owned by exactly one run at a time. It is created with empty
// accumulators and StatusPending, mutated only through Merge, and treated as
// read-only once its status is StatusComplete.
type AuditRecord struct {
	// ID identifies the audit in the result store. Assigned by the caller.
	ID string `json:"id,omitempty"`

	// CreatedAt is when the record was constructed.
	CreatedAt time.Time `json:"created_at"`

	// DatasetLocation is an opaque locator understood by the dataset loader.
	DatasetLocation string `json:"dataset_location"`

	// ProtectedAttributes lists sensitive columns. The first entry is the
	// sensitive column used by the model bias analysis.
	ProtectedAttributes []string `json:"protected_attributes"`

	// PrivilegedGroups describes the advantaged cohort.
	PrivilegedGroups []Group `json:"privileged_groups"`

	// UnprivilegedGroups describes the disadvantaged cohort.
	UnprivilegedGroups []Group `json:"unprivileged_groups"`

	// LabelColumn is the name of the outcome column.
	LabelColumn string `json:"label_column"`

	// PredictFn is the optional model. Its presence decides whether the model
	// bias and explainer steps run.
	PredictFn PredictFunc `json:"-"`

	// HasModel records whether a model was supplied. It survives serialization.
	HasModel bool `json:"has_model"`

	// Findings is append-only; order equals step execution order.
	Findings []Finding `json:"findings"`

	// Explanations is append-only and empty when no model is present.
	Explanations []Explanation `json:"explanations"`

	// Report is empty until the terminal step writes it, exactly once.
	Report string `json:"report"`

	// Status is the latest lifecycle state.
	Status Status `json:"status"`

	// Steps traces the outcome of every executed step, in order.
	Steps []StepResult `json:"steps"`
}

// RecordParams holds the caller inputs needed to build a record.
type RecordParams struct {
	DatasetLocation     string
	ProtectedAttributes []string
	PrivilegedGroups    []Group
	UnprivilegedGroups  []Group
	LabelColumn         string
	PredictFn           PredictFunc
	CreatedAt           time.Time
}

// NewAuditRecord creates a pending record with empty accumulators.
// Input slices are copied so later changes by the caller cannot leak in.
func NewAuditRecord(p RecordParams) *AuditRecord {
	return &AuditRecord{
		CreatedAt:           p.CreatedAt,
		DatasetLocation:     p.DatasetLocation,
		ProtectedAttributes: slices.Clone(p.ProtectedAttributes),
		PrivilegedGroups:    cloneGroups(p.PrivilegedGroups),
		UnprivilegedGroups:  cloneGroups(p.UnprivilegedGroups),
		LabelColumn:         p.LabelColumn,
		PredictFn:           p.PredictFn,
		HasModel:            p.PredictFn != nil,
		Findings:            []Finding{},
		Explanations:        []Explanation{},
		Status:              StatusPending,
		Steps:               []StepResult{},
	}
}

// SensitiveColumn returns the first protected attribute, or "" if none.
func (r *AuditRecord) SensitiveColumn() string {
	if len(r.ProtectedAttributes) == 0 {
		return ""
	}
	return r.ProtectedAttributes[0]
}

// BiasCount returns the number of findings with a positive verdict.
func (r *AuditRecord) BiasCount() int {
	return CountBiased(r.Findings)
}

// IsComplete reports whether the terminal step has run.
func (r *AuditRecord) IsComplete() bool {
	return r.Status == StatusComplete
}

// Clone returns a deep copy of the record. The prediction function is shared
// because functions are immutable values.
func (r *AuditRecord) Clone() *AuditRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.ProtectedAttributes = slices.Clone(r.ProtectedAttributes)
	c.PrivilegedGroups = cloneGroups(r.PrivilegedGroups)
	c.UnprivilegedGroups = cloneGroups(r.UnprivilegedGroups)
	c.Findings = cloneFindings(r.Findings)
	c.Explanations = cloneExplanations(r.Explanations)
	c.Steps = slices.Clone(r.Steps)
	return &c
}

// CountBiased returns how many findings carry a positive verdict.
func CountBiased(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.IsBiased {
			n++
		}
	}
	return n
}

func cloneGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = maps.Clone(g)
	}
	return out
}

func cloneFindings(findings []Finding) []Finding {
	if findings == nil {
		return nil
	}
	out := make([]Finding, len(findings))
	for i, f := range findings {
		out[i] = f
		out[i].Metrics = maps.Clone(f.Metrics)
	}
	return out
}

func cloneExplanations(explanations []Explanation) []Explanation {
	if explanations == nil {
		return nil
	}
	out := make([]Explanation, len(explanations))
	for i, e := range explanations {
		out[i] = e
		out[i].Features = slices.Clone(e.Features)
		out[i].PredictedProbabilities = slices.Clone(e.PredictedProbabilities)
	}
	return out
}

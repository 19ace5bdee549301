package fairness

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/nao1215/fairhire/internal/dataset"
	"github.com/nao1215/fairhire/internal/model"
)

// FavorableLabel is the label value counted as a positive outcome.
const FavorableLabel = 1.0

// UnfavorableLabel is the only other label value allowed.
const UnfavorableLabel = 0.0

var (
	// ErrEmptyCohort is returned when no row matches a group definition.
	ErrEmptyCohort = errors.New("no rows match the group definition")

	// ErrNonBinaryLabel is returned when the label column holds values other than 0 and 1.
	ErrNonBinaryLabel = errors.New("label column must be binary (0 or 1)")
)

// DataInput describes which columns and cohorts to compare.
type DataInput struct {
	ProtectedAttributes []string
	PrivilegedGroups    []model.Group
	UnprivilegedGroups  []model.Group
	LabelColumn         string
}

// DataResult holds the dataset-level statistics.
type DataResult struct {
	StatisticalParityDifference float64
	// DisparateImpact is NaN when the privileged base rate is zero.
	DisparateImpact      float64
	BaseRatePrivileged   float64
	BaseRateUnprivileged float64
	NumPositives         int
	NumNegatives         int
}

// Metrics returns the statistics keyed by metric name.
// Disparate impact is left out when it is undefined.
func (r DataResult) Metrics() map[string]float64 {
	m := map[string]float64{
		MetricStatisticalParityDifference: r.StatisticalParityDifference,
		MetricBaseRatePrivileged:          r.BaseRatePrivileged,
		MetricBaseRateUnprivileged:        r.BaseRateUnprivileged,
		MetricNumPositives:                float64(r.NumPositives),
		MetricNumNegatives:                float64(r.NumNegatives),
	}
	if !math.IsNaN(r.DisparateImpact) && !math.IsInf(r.DisparateImpact, 0) {
		m[MetricDisparateImpact] = r.DisparateImpact
	}
	return m
}

// DataAnalyzer measures label bias in a dataset.
type DataAnalyzer struct {
	// Threshold is the verdict threshold; zero means DefaultThreshold.
	Threshold float64
}

// Analyze computes the dataset statistics.
//
// A row belongs to a cohort when it matches any of the cohort's groups, and
// it matches a group when every attribute in the group has the given value.
func (a DataAnalyzer) Analyze(frame *dataset.Frame, in DataInput) (DataResult, error) {
	if len(in.ProtectedAttributes) == 0 {
		return DataResult{}, errors.New("at least one protected attribute is required")
	}
	for _, attr := range in.ProtectedAttributes {
		if !frame.HasColumn(attr) {
			return DataResult{}, fmt.Errorf("protected attribute %q not found in dataset", attr)
		}
	}
	for _, groups := range [][]model.Group{in.PrivilegedGroups, in.UnprivilegedGroups} {
		for _, g := range groups {
			for k := range g {
				if !slices.Contains(in.ProtectedAttributes, k) {
					return DataResult{}, fmt.Errorf("group attribute %q is not a protected attribute", k)
				}
			}
		}
	}

	labels, err := frame.Column(in.LabelColumn)
	if err != nil {
		return DataResult{}, fmt.Errorf("label column: %w", err)
	}

	var (
		res                DataResult
		privPos, privN     int
		unprivPos, unprivN int
	)
	for i, y := range labels {
		switch y {
		case FavorableLabel:
			res.NumPositives++
		case UnfavorableLabel:
			res.NumNegatives++
		default:
			return DataResult{}, fmt.Errorf("%w: row %d has %v", ErrNonBinaryLabel, i+1, y)
		}

		positive := 0
		if y == FavorableLabel {
			positive = 1
		}
		if matchesAny(frame, i, in.PrivilegedGroups) {
			privN++
			privPos += positive
		}
		if matchesAny(frame, i, in.UnprivilegedGroups) {
			unprivN++
			unprivPos += positive
		}
	}

	if privN == 0 {
		return DataResult{}, fmt.Errorf("privileged cohort: %w", ErrEmptyCohort)
	}
	if unprivN == 0 {
		return DataResult{}, fmt.Errorf("unprivileged cohort: %w", ErrEmptyCohort)
	}

	res.BaseRatePrivileged = float64(privPos) / float64(privN)
	res.BaseRateUnprivileged = float64(unprivPos) / float64(unprivN)
	res.StatisticalParityDifference = res.BaseRateUnprivileged - res.BaseRatePrivileged
	if res.BaseRatePrivileged == 0 {
		res.DisparateImpact = math.NaN()
	} else {
		res.DisparateImpact = res.BaseRateUnprivileged / res.BaseRatePrivileged
	}
	return res, nil
}

// IsBiased reports whether |statistical parity difference| exceeds the threshold.
func (a DataAnalyzer) IsBiased(r DataResult) bool {
	return exceeds(r.StatisticalParityDifference, a.Threshold)
}

// Summary renders the one-line verdict.
func (a DataAnalyzer) Summary(r DataResult) string {
	di := "n/a"
	if !math.IsNaN(r.DisparateImpact) {
		di = fmt.Sprintf("%.4f", r.DisparateImpact)
	}
	return fmt.Sprintf("Statistical Parity: %.4f, Disparate Impact: %s, Bias: %s",
		r.StatisticalParityDifference, di, verdict(a.IsBiased(r)))
}

// Finding wraps the result into a finding.
func (a DataAnalyzer) Finding(r DataResult) model.Finding {
	return model.Finding{
		Type:     DataBiasType,
		IsBiased: a.IsBiased(r),
		Summary:  a.Summary(r),
		Metrics:  r.Metrics(),
	}
}

func matchesAny(frame *dataset.Frame, row int, groups []model.Group) bool {
	for _, g := range groups {
		if matches(frame, row, g) {
			return true
		}
	}
	return false
}

func matches(frame *dataset.Frame, row int, g model.Group) bool {
	if len(g) == 0 {
		return false
	}
	for attr, want := range g {
		v, ok := frame.Value(row, attr)
		if !ok || v != want {
			return false
		}
	}
	return true
}

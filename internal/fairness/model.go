package fairness

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/nao1215/fairhire/internal/model"
)

// ModelResult holds the prediction-level statistics.
type ModelResult struct {
	DemographicParityDifference float64
	EqualizedOddsDifference     float64
}

// Metrics returns the statistics keyed by metric name.
func (r ModelResult) Metrics() map[string]float64 {
	return map[string]float64{
		MetricDemographicParityDifference: r.DemographicParityDifference,
		MetricEqualizedOddsDifference:     r.EqualizedOddsDifference,
	}
}

// ModelAnalyzer measures prediction bias across a sensitive column.
type ModelAnalyzer struct {
	// Threshold is the verdict threshold; zero means DefaultThreshold.
	Threshold float64
}

type groupRates struct {
	n, selected int
	pos, tp     int
	neg, fp     int
}

// ComputeMetrics compares predictions across the distinct values of sensitive.
//
// Demographic parity difference is the spread (max - min) of selection rates.
// Equalized odds difference is the larger of the true positive rate spread
// and the false positive rate spread. A group with no actual positives is
// left out of the TPR spread and one with no actual negatives is left out of
// the FPR spread.
func (a ModelAnalyzer) ComputeMetrics(yTrue, yPred, sensitive []float64) (ModelResult, error) {
	if len(yTrue) != len(yPred) || len(yTrue) != len(sensitive) {
		return ModelResult{}, fmt.Errorf("length mismatch: %d labels, %d predictions, %d sensitive values",
			len(yTrue), len(yPred), len(sensitive))
	}
	if len(yTrue) == 0 {
		return ModelResult{}, errors.New("no rows to compare")
	}

	groups := make(map[float64]*groupRates)
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if !isBinary(t) {
			return ModelResult{}, fmt.Errorf("%w: row %d has %v", ErrNonBinaryLabel, i+1, t)
		}
		if !isBinary(p) {
			return ModelResult{}, fmt.Errorf("prediction at row %d is %v, expected 0 or 1", i+1, p)
		}

		g, ok := groups[sensitive[i]]
		if !ok {
			g = &groupRates{}
			groups[sensitive[i]] = g
		}
		g.n++
		if p == FavorableLabel {
			g.selected++
		}
		if t == FavorableLabel {
			g.pos++
			if p == FavorableLabel {
				g.tp++
			}
		} else {
			g.neg++
			if p == FavorableLabel {
				g.fp++
			}
		}
	}

	var selection, tpr, fpr []float64
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		g := groups[key]
		selection = append(selection, float64(g.selected)/float64(g.n))
		if g.pos > 0 {
			tpr = append(tpr, float64(g.tp)/float64(g.pos))
		}
		if g.neg > 0 {
			fpr = append(fpr, float64(g.fp)/float64(g.neg))
		}
	}

	return ModelResult{
		DemographicParityDifference: spread(selection),
		EqualizedOddsDifference:     max(spread(tpr), spread(fpr)),
	}, nil
}

// IsBiased reports whether |demographic parity difference| exceeds the threshold.
func (a ModelAnalyzer) IsBiased(r ModelResult) bool {
	return exceeds(r.DemographicParityDifference, a.Threshold)
}

// Summary renders the one-line verdict.
func (a ModelAnalyzer) Summary(r ModelResult) string {
	return fmt.Sprintf("Demographic Parity: %.4f, Equalized Odds: %.4f, Bias: %s",
		r.DemographicParityDifference, r.EqualizedOddsDifference, verdict(a.IsBiased(r)))
}

// Finding wraps the result into a finding.
func (a ModelAnalyzer) Finding(r ModelResult) model.Finding {
	return model.Finding{
		Type:     ModelBiasType,
		IsBiased: a.IsBiased(r),
		Summary:  a.Summary(r),
		Metrics:  r.Metrics(),
	}
}

// Predictions turns per-row class probabilities into hard 0/1 predictions.
// Multi-column rows take the most probable class (ties go to the lower
// class); a single-column row is read as P(favourable) and cut at 0.5.
func Predictions(probs [][]float64) ([]float64, error) {
	out := make([]float64, len(probs))
	for i, p := range probs {
		if floats.HasNaN(p) {
			return nil, fmt.Errorf("row %d: probability is NaN", i+1)
		}
		switch len(p) {
		case 0:
			return nil, fmt.Errorf("row %d: empty probability vector", i+1)
		case 1:
			if p[0] >= 0.5 {
				out[i] = FavorableLabel
			}
		default:
			idx := floats.MaxIdx(p)
			if idx > 1 {
				return nil, fmt.Errorf("row %d: predicted class %d is not binary", i+1, idx)
			}
			out[i] = float64(idx)
		}
	}
	return out, nil
}

func isBinary(v float64) bool {
	return v == FavorableLabel || v == UnfavorableLabel
}

func spread(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return floats.Max(v) - floats.Min(v)
}

// Package predictor loads simple scoring models that can be audited.
//
// A model file is YAML describing a logistic regression over named feature
// columns:
//
//	name: screening-v2
//	intercept: -3.5
//	coefficients:
//	  experience: 0.8
//	  gender: 0.6
//
// Columns that the model does not name are ignored, so the same model can be
// applied to any dataset that contains its features.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/fairhire/internal/model"
)

// ErrNoCoefficients is returned when a model file names no features.
var ErrNoCoefficients = errors.New("model has no coefficients")

// LinearModel is a logistic regression over named features.
type LinearModel struct {
	Name         string             `yaml:"name"`
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
}

// Load reads a model file from disk.
func Load(path string) (*LinearModel, error) {
	f, err := os.Open(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a model from YAML.
func Parse(r io.Reader) (*LinearModel, error) {
	var m LinearModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if len(m.Coefficients) == 0 {
		return nil, ErrNoCoefficients
	}
	for name, c := range m.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %q is not finite", name)
		}
	}
	return &m, nil
}

// Probability returns P(favourable) for one row.
func (m *LinearModel) Probability(columns []string, row []float64) (float64, error) {
	if len(columns) != len(row) {
		return 0, fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
	}

	z := m.Intercept
	seen := 0
	for j, c := range columns {
		if w, ok := m.Coefficients[c]; ok {
			z += w * row[j]
			seen++
		}
	}
	if seen != len(m.Coefficients) {
		return 0, fmt.Errorf("dataset lacks %d of the model's features", len(m.Coefficients)-seen)
	}
	return 1 / (1 + math.Exp(-z)), nil
}

// PredictFunc binds the model to the audit prediction contract.
// Each row yields [P(reject), P(hire)].
func (m *LinearModel) PredictFunc() model.PredictFunc {
	return func(ctx context.Context, features model.FeatureMatrix) ([][]float64, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := make([][]float64, len(features.Rows))
		for i, row := range features.Rows {
			p, err := m.Probability(features.Columns, row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			out[i] = []float64{1 - p, p}
		}
		return out, nil
	}
}

package explain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/nao1215/fairhire/internal/model"
)

const (
	// DefaultNumSamples is the number of perturbations per explanation.
	DefaultNumSamples = 1000

	// DefaultNumFeatures is the number of features reported per explanation.
	DefaultNumFeatures = 5

	// DefaultSeed seeds the perturbation generator.
	DefaultSeed uint64 = 1

	// ridgeAlpha is the L2 penalty of the surrogate model.
	ridgeAlpha = 1.0
)

// DefaultClassNames labels the two outcome classes.
var DefaultClassNames = []string{"Reject", "Hire"}

// ErrNoTrainingData is returned by New when the training matrix is empty.
var ErrNoTrainingData = errors.New("explainer needs at least one training row")

// Explainer explains predictions of a model over a fixed feature space.
// It is safe for concurrent use; every call draws from its own generator.
type Explainer struct {
	columns     []string
	means       []float64
	stds        []float64
	numSamples  int
	kernelWidth float64
	seed        uint64
	classNames  []string
}

// Option configures an Explainer.
type Option func(*Explainer)

// WithNumSamples sets how many perturbations are drawn per explanation.
func WithNumSamples(n int) Option {
	return func(e *Explainer) {
		if n > 1 {
			e.numSamples = n
		}
	}
}

// WithSeed sets the seed of the perturbation generator.
func WithSeed(seed uint64) Option {
	return func(e *Explainer) {
		e.seed = seed
	}
}

// WithKernelWidth overrides the proximity kernel width.
// The default is 0.75 * sqrt(number of features).
func WithKernelWidth(w float64) Option {
	return func(e *Explainer) {
		if w > 0 {
			e.kernelWidth = w
		}
	}
}

// WithClassNames sets the names of the outcome classes.
func WithClassNames(names ...string) Option {
	return func(e *Explainer) {
		if len(names) > 0 {
			e.classNames = slices.Clone(names)
		}
	}
}

// New builds an explainer from the training feature matrix.
func New(training model.FeatureMatrix, opts ...Option) (*Explainer, error) {
	if training.NumRows() == 0 || len(training.Columns) == 0 {
		return nil, ErrNoTrainingData
	}

	d := len(training.Columns)
	e := &Explainer{
		columns:     slices.Clone(training.Columns),
		means:       make([]float64, d),
		stds:        make([]float64, d),
		numSamples:  DefaultNumSamples,
		kernelWidth: 0.75 * math.Sqrt(float64(d)),
		seed:        DefaultSeed,
		classNames:  slices.Clone(DefaultClassNames),
	}
	for _, opt := range opts {
		opt(e)
	}

	col := make([]float64, training.NumRows())
	for j := range d {
		for i, row := range training.Rows {
			if len(row) != d {
				return nil, fmt.Errorf("training row %d has %d values, expected %d", i+1, len(row), d)
			}
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if math.IsNaN(std) || std == 0 {
			std = 1
		}
		e.means[j], e.stds[j] = mean, std
	}
	return e, nil
}

// className names the most probable class of p. A single probability is
// read as P(class 1).
func (e *Explainer) className(p []float64) string {
	idx := 0
	switch len(p) {
	case 0:
		return ""
	case 1:
		if p[0] >= 0.5 {
			idx = 1
		}
	default:
		idx = floats.MaxIdx(p)
	}
	if idx >= len(e.classNames) {
		return strconv.Itoa(idx)
	}
	return e.classNames[idx]
}

// Explain explains predict's output for instance using at most numFeatures
// features. numFeatures <= 0 means DefaultNumFeatures.
func (e *Explainer) Explain(ctx context.Context, predict model.PredictFunc, instance []float64, numFeatures int) (model.Explanation, error) {
	d := len(e.columns)
	if len(instance) != d {
		return model.Explanation{}, fmt.Errorf("instance has %d values, expected %d", len(instance), d)
	}
	if predict == nil {
		return model.Explanation{}, errors.New("no prediction function")
	}
	if numFeatures <= 0 {
		numFeatures = DefaultNumFeatures
	}
	numFeatures = min(numFeatures, d)

	samples, scaled := e.perturb(instance)

	probs, err := predict(ctx, model.FeatureMatrix{Columns: slices.Clone(e.columns), Rows: samples})
	if err != nil {
		return model.Explanation{}, fmt.Errorf("predict perturbations: %w", err)
	}
	if len(probs) != len(samples) {
		return model.Explanation{}, fmt.Errorf("model returned %d predictions for %d samples", len(probs), len(samples))
	}

	target := make([]float64, len(probs))
	for i, p := range probs {
		switch len(p) {
		case 0:
			return model.Explanation{}, fmt.Errorf("model returned an empty probability vector for sample %d", i)
		case 1:
			target[i] = p[0]
		default:
			target[i] = p[1]
		}
	}

	weights := e.kernel(scaled)

	all := make([]int, d)
	for j := range all {
		all[j] = j
	}
	coef, _, err := ridge(scaled, target, weights, all)
	if err != nil {
		return model.Explanation{}, err
	}

	selected := slices.Clone(all)
	slices.SortStableFunc(selected, func(a, b int) int {
		return cmp.Compare(math.Abs(coef[b]), math.Abs(coef[a]))
	})
	selected = selected[:numFeatures]

	coef, intercept, err := ridge(scaled, target, weights, selected)
	if err != nil {
		return model.Explanation{}, err
	}

	features := make([]model.FeatureWeight, len(selected))
	for k, j := range selected {
		features[k] = model.FeatureWeight{Feature: e.columns[j], Weight: coef[k]}
	}
	slices.SortStableFunc(features, func(a, b model.FeatureWeight) int {
		return cmp.Compare(math.Abs(b.Weight), math.Abs(a.Weight))
	})

	return model.Explanation{
		Features:               features,
		Score:                  weightedR2(scaled, target, weights, selected, coef, intercept),
		PredictedProbabilities: slices.Clone(probs[0]),
		PredictedClass:         e.className(probs[0]),
	}, nil
}

// perturb draws samples around the training distribution. Row 0 is the
// instance itself. It returns the raw samples and their standardised form.
func (e *Explainer) perturb(instance []float64) (raw, scaled [][]float64) {
	rng := rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	d := len(e.columns)

	raw = make([][]float64, e.numSamples)
	scaled = make([][]float64, e.numSamples)
	for i := range e.numSamples {
		r := make([]float64, d)
		s := make([]float64, d)
		for j := range d {
			if i == 0 {
				r[j] = instance[j]
			} else {
				r[j] = rng.NormFloat64()*e.stds[j] + e.means[j]
			}
			s[j] = (r[j] - e.means[j]) / e.stds[j]
		}
		raw[i], scaled[i] = r, s
	}
	return raw, scaled
}

// kernel weights every sample by its distance to sample 0.
func (e *Explainer) kernel(scaled [][]float64) []float64 {
	w := make([]float64, len(scaled))
	origin := scaled[0]
	for i, s := range scaled {
		var d2 float64
		for j := range s {
			diff := s[j] - origin[j]
			d2 += diff * diff
		}
		w[i] = math.Sqrt(math.Exp(-d2 / (e.kernelWidth * e.kernelWidth)))
	}
	return w
}

// ridge fits a weighted ridge regression with an unpenalised intercept on
// the given feature columns.
func ridge(x [][]float64, y, w []float64, cols []int) (coef []float64, intercept float64, err error) {
	k := len(cols)
	n := len(x)

	col := make([]float64, n)
	xbar := make([]float64, k)
	for c, j := range cols {
		for i := range x {
			col[i] = x[i][j]
		}
		xbar[c] = stat.Mean(col, w)
	}
	ybar := stat.Mean(y, w)

	xc := mat.NewDense(n, k, nil)
	for i := range x {
		for c, j := range cols {
			xc.Set(i, c, x[i][j]-xbar[c])
		}
	}

	// A = Xcᵀ W Xc + αI, b = Xcᵀ W (y - ȳ)
	wx := mat.DenseCopyOf(xc)
	for i := range n {
		for c := range k {
			wx.Set(i, c, wx.At(i, c)*w[i])
		}
	}
	var a mat.Dense
	a.Mul(xc.T(), wx)
	for c := range k {
		a.Set(c, c, a.At(c, c)+ridgeAlpha)
	}

	yc := mat.NewVecDense(n, nil)
	for i := range n {
		yc.SetVec(i, y[i]-ybar)
	}
	var b mat.VecDense
	b.MulVec(wx.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&a, &b); err != nil {
		return nil, 0, fmt.Errorf("fit surrogate model: %w", err)
	}

	coef = make([]float64, k)
	intercept = ybar
	for c := range k {
		coef[c] = beta.AtVec(c)
		intercept -= coef[c] * xbar[c]
	}
	return coef, intercept, nil
}

func weightedR2(x [][]float64, y, w []float64, cols []int, coef []float64, intercept float64) float64 {
	ybar := stat.Mean(y, w)
	var ssRes, ssTot float64
	for i := range x {
		pred := intercept
		for c, j := range cols {
			pred += coef[c] * x[i][j]
		}
		ssRes += w[i] * (y[i] - pred) * (y[i] - pred)
		ssTot += w[i] * (y[i] - ybar) * (y[i] - ybar)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/fairhire/internal/dataset"
	"github.com/nao1215/fairhire/internal/explain"
	"github.com/nao1215/fairhire/internal/fairness"
	"github.com/nao1215/fairhire/internal/model"
	"github.com/nao1215/fairhire/internal/report"
)

// Step names as they appear in logs, metrics and the record's step trace.
const (
	DataBiasStepName  = "data_bias"
	ModelBiasStepName = "model_bias"
	ExplainerStepName = "explainer"
	ReportStepName    = "report"
)

// DefaultExplainInstances is how many leading rows the explainer step explains.
const DefaultExplainInstances = 3

const noModelReason = "no model prediction function"

// DatasetLoader loads tabular data from a location.
type DatasetLoader interface {
	Load(ctx context.Context, location string) (*dataset.Frame, error)
}

// ReportRenderer renders findings into report text.
type ReportRenderer interface {
	Render(findings []model.Finding) (string, error)
}

// loadDataset keeps classified loader errors as they are and classifies
// anything else as DataUnavailable.
func loadDataset(ctx context.Context, loader DatasetLoader, location string) (*dataset.Frame, error) {
	frame, err := loader.Load(ctx, location)
	if err == nil {
		return frame, nil
	}
	var me *model.Error
	if errors.As(err, &me) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, model.DataUnavailable("load dataset "+location, err)
}

// DataBiasStep measures label bias between the privileged and unprivileged
// cohorts. It always runs and appends one finding.
type DataBiasStep struct {
	loader   DatasetLoader
	analyzer fairness.DataAnalyzer
}

// NewDataBiasStep creates a data bias step. threshold <= 0 means the default.
func NewDataBiasStep(loader DatasetLoader, threshold float64) *DataBiasStep {
	return &DataBiasStep{
		loader:   loader,
		analyzer: fairness.DataAnalyzer{Threshold: threshold},
	}
}

// Name returns the step name.
func (s *DataBiasStep) Name() string {
	return DataBiasStepName
}

// Do executes the data bias step.
func (s *DataBiasStep) Do(ctx context.Context, rec *model.AuditRecord) (model.Update, error) {
	frame, err := loadDataset(ctx, s.loader, rec.DatasetLocation)
	if err != nil {
		return model.Update{}, err
	}

	result, err := s.analyzer.Analyze(frame, fairness.DataInput{
		ProtectedAttributes: rec.ProtectedAttributes,
		PrivilegedGroups:    rec.PrivilegedGroups,
		UnprivilegedGroups:  rec.UnprivilegedGroups,
		LabelColumn:         rec.LabelColumn,
	})
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("data bias analysis", err)
	}

	return model.Update{
		Findings: []model.Finding{s.analyzer.Finding(result)},
		Status:   model.StatusDataBiasComplete,
		Step:     model.Ran(s.Name()),
	}, nil
}

// ModelBiasStep compares the model's predictions across the first protected
// attribute. It skips when the record has no prediction function.
type ModelBiasStep struct {
	loader   DatasetLoader
	analyzer fairness.ModelAnalyzer
}

// NewModelBiasStep creates a model bias step. threshold <= 0 means the default.
func NewModelBiasStep(loader DatasetLoader, threshold float64) *ModelBiasStep {
	return &ModelBiasStep{
		loader:   loader,
		analyzer: fairness.ModelAnalyzer{Threshold: threshold},
	}
}

// Name returns the step name.
func (s *ModelBiasStep) Name() string {
	return ModelBiasStepName
}

// Do executes the model bias step.
func (s *ModelBiasStep) Do(ctx context.Context, rec *model.AuditRecord) (model.Update, error) {
	if rec.PredictFn == nil {
		return model.Update{
			Status: model.StatusModelBiasSkipped,
			Step:   model.Skipped(s.Name(), noModelReason),
		}, nil
	}

	sensitiveColumn := rec.SensitiveColumn()
	if sensitiveColumn == "" {
		return model.Update{}, model.ConfigurationInvalid("model bias analysis needs a protected attribute")
	}

	frame, err := loadDataset(ctx, s.loader, rec.DatasetLocation)
	if err != nil {
		return model.Update{}, err
	}

	yTrue, err := frame.Column(rec.LabelColumn)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model bias analysis", err)
	}
	sensitive, err := frame.Column(sensitiveColumn)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model bias analysis", err)
	}
	features, err := frame.Features(rec.LabelColumn)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model bias analysis", err)
	}

	probs, err := rec.PredictFn(ctx, features)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model prediction", err)
	}
	if len(probs) != features.NumRows() {
		return model.Update{}, model.CollaboratorFailure("model prediction",
			fmt.Errorf("model returned %d predictions for %d rows", len(probs), features.NumRows()))
	}
	yPred, err := fairness.Predictions(probs)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model prediction", err)
	}

	result, err := s.analyzer.ComputeMetrics(yTrue, yPred, sensitive)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("model bias analysis", err)
	}

	return model.Update{
		Findings: []model.Finding{s.analyzer.Finding(result)},
		Status:   model.StatusModelBiasComplete,
		Step:     model.Ran(s.Name()),
	}, nil
}

// ExplainerStep explains the model's predictions for the leading rows of the
// dataset. It skips when the record has no prediction function.
type ExplainerStep struct {
	loader      DatasetLoader
	instances   int
	numFeatures int
	options     []explain.Option
}

// ExplainerStepOption configures an ExplainerStep.
type ExplainerStepOption func(*ExplainerStep)

// WithExplainInstances sets how many leading rows are explained.
func WithExplainInstances(n int) ExplainerStepOption {
	return func(s *ExplainerStep) {
		if n > 0 {
			s.instances = n
		}
	}
}

// WithExplainFeatures sets how many features each explanation keeps.
func WithExplainFeatures(n int) ExplainerStepOption {
	return func(s *ExplainerStep) {
		if n > 0 {
			s.numFeatures = n
		}
	}
}

// WithExplainerOptions passes options through to the explainer.
func WithExplainerOptions(opts ...explain.Option) ExplainerStepOption {
	return func(s *ExplainerStep) {
		s.options = append(s.options, opts...)
	}
}

// NewExplainerStep creates an explainer step.
func NewExplainerStep(loader DatasetLoader, opts ...ExplainerStepOption) *ExplainerStep {
	s := &ExplainerStep{
		loader:      loader,
		instances:   DefaultExplainInstances,
		numFeatures: explain.DefaultNumFeatures,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExplainerStep) Name() string {
	return ExplainerStepName
}

// Do executes the explainer step.
func (s *ExplainerStep) Do(ctx context.Context, rec *model.AuditRecord) (model.Update, error) {
	if rec.PredictFn == nil {
		return model.Update{
			Status: model.StatusExplainerSkipped,
			Step:   model.Skipped(s.Name(), noModelReason),
		}, nil
	}

	frame, err := loadDataset(ctx, s.loader, rec.DatasetLocation)
	if err != nil {
		return model.Update{}, err
	}
	features, err := frame.Features(rec.LabelColumn)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("explanation", err)
	}

	explainer, err := explain.New(features, s.options...)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("explanation", err)
	}

	n := min(s.instances, features.NumRows())
	explanations := make([]model.Explanation, 0, n)
	for i := range n {
		exp, err := explainer.Explain(ctx, rec.PredictFn, features.Rows[i], s.numFeatures)
		if err != nil {
			return model.Update{}, model.CollaboratorFailure(fmt.Sprintf("explain row %d", i), err)
		}
		exp.Row = i
		explanations = append(explanations, exp)
	}

	return model.Update{
		Explanations: explanations,
		Status:       model.StatusExplainerComplete,
		Step:         model.Ran(s.Name()),
	}, nil
}

// ReportStep renders the accumulated findings. It always runs last and
// seals the record.
type ReportStep struct {
	renderer ReportRenderer
}

// NewReportStep creates a report step.
func NewReportStep(renderer ReportRenderer) *ReportStep {
	return &ReportStep{renderer: renderer}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return ReportStepName
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, rec *model.AuditRecord) (model.Update, error) {
	text, err := s.renderer.Render(rec.Findings)
	if err != nil {
		return model.Update{}, model.CollaboratorFailure("report rendering", err)
	}
	if text == "" {
		return model.Update{}, model.CollaboratorFailure("report rendering", errors.New("renderer returned an empty report"))
	}

	return model.Update{
		Status: model.StatusComplete,
		Step:   model.Ran(s.Name()),
	}.WithReport(text), nil
}

// StepConfig tunes the default step chain.
type StepConfig struct {
	// Loader loads datasets. Defaults to dataset.CSVLoader.
	Loader DatasetLoader

	// Renderer renders the report. Defaults to report.NewRenderer().
	Renderer ReportRenderer

	// Threshold is the verdict threshold of both bias steps.
	Threshold float64

	ExplainInstances int
	ExplainFeatures  int
	ExplainSamples   int
	ExplainSeed      uint64

	// ExplainClassNames names the outcomes in explanations. Empty keeps
	// explain.DefaultClassNames.
	ExplainClassNames []string
}

// DefaultStepConfig returns the default step configuration.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		Loader:           dataset.CSVLoader{},
		Renderer:         report.NewRenderer(),
		Threshold:        fairness.DefaultThreshold,
		ExplainInstances: DefaultExplainInstances,
		ExplainFeatures:  explain.DefaultNumFeatures,
		ExplainSamples:   explain.DefaultNumSamples,
		ExplainSeed:      explain.DefaultSeed,
	}
}

// Steps returns the fixed audit chain: data bias, model bias, explainer, report.
func (c StepConfig) Steps() []Step {
	loader := c.Loader
	if loader == nil {
		loader = dataset.CSVLoader{}
	}
	renderer := c.Renderer
	if renderer == nil {
		renderer = report.NewRenderer()
	}

	return []Step{
		NewDataBiasStep(loader, c.Threshold),
		NewModelBiasStep(loader, c.Threshold),
		NewExplainerStep(loader,
			WithExplainInstances(c.ExplainInstances),
			WithExplainFeatures(c.ExplainFeatures),
			WithExplainerOptions(
				explain.WithNumSamples(c.ExplainSamples),
				explain.WithSeed(c.ExplainSeed),
				explain.WithClassNames(c.ExplainClassNames...),
			),
		),
		NewReportStep(renderer),
	}
}

// NewDefault creates a pipeline with the fixed audit chain.
func NewDefault(c StepConfig, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(c.Steps()...)
	return p
}

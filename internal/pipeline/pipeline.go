package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/fairhire/internal/clock"
	"github.com/nao1215/fairhire/internal/metrics"
	"github.com/nao1215/fairhire/internal/model"
)

// Step is one unit of work of an audit.
type Step interface {
	// Do executes the step against rec and returns the fields it changes.
	// rec is a private copy; changes made to it are discarded.
	Do(ctx context.Context, rec *model.AuditRecord) (model.Update, error)

	// Name returns the step's name for logging and tracing.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps   []Step
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics records step and audit metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock sets the clock used to stamp new records.
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = clock.RealClock{}
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Run validates req, builds a fresh record from it and executes the steps.
func (p *Pipeline) Run(ctx context.Context, req Request) (*model.AuditRecord, error) {
	if err := req.Validate(); err != nil {
		p.metrics.ObserveAudit(err)
		return nil, err
	}

	rec, err := p.Execute(ctx, req.Record(p.clock.Now()))
	p.metrics.ObserveAudit(err)
	return rec, err
}

// Execute runs every step in sequence over a working copy of rec and returns
// the merged result. rec itself is never modified.
//
// Cancellation is checked before each step. The first step error ends the
// run: it is returned as is and the working copy is discarded.
//
// Design decision: Each step receives its own deep clone of the working copy
// and reports changes through a model.Update rather than mutating the record
// because:
// 1. A step that fails halfway cannot leave partial findings behind
// 2. The merge rule (concatenate sequences, overwrite scalars) lives in one place
// 3. The caller's record stays untouched, so a failed run has nothing to persist
func (p *Pipeline) Execute(ctx context.Context, rec *model.AuditRecord) (*model.AuditRecord, error) {
	working := rec.Clone()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"audit", working.ID,
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return nil, ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"audit", working.ID,
			"step", step.Name(),
		)

		start := time.Now()
		update, err := step.Do(ctx, working.Clone())
		elapsed := time.Since(start)
		if err != nil {
			p.logger.Error("step failed",
				"audit", working.ID,
				"step", step.Name(),
				"error", err,
			)
			p.metrics.ObserveStep(step.Name(), "failed", elapsed)
			return nil, err
		}

		if err := model.Merge(working, update); err != nil {
			p.metrics.ObserveStep(step.Name(), "failed", elapsed)
			return nil, fmt.Errorf("failed to merge update of step %s: %w", step.Name(), err)
		}

		outcome := model.OutcomeRan
		if update.Step != nil {
			outcome = update.Step.Outcome
		}
		p.metrics.ObserveStep(step.Name(), string(outcome), elapsed)
		for _, f := range update.Findings {
			p.metrics.ObserveFinding(f.Type, f.IsBiased)
		}

		if outcome == model.OutcomeSkipped {
			p.logger.Info("step skipped",
				"audit", working.ID,
				"step", step.Name(),
				"reason", update.Step.Reason,
				"status", working.Status,
			)
			continue
		}
		p.logger.Debug("step completed",
			"audit", working.ID,
			"step", step.Name(),
			"status", working.Status,
			"elapsed", elapsed,
		)
	}

	return working, nil
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/fairhire/internal/model"
)

// DefaultConcurrency is the number of audits a BatchProcessor runs at once.
const DefaultConcurrency = 4

// BatchResult is the outcome of one audit in a batch.
type BatchResult struct {
	// Request is the request that produced this result.
	Request Request

	// Record is the completed record. Nil when Err is set.
	Record *model.AuditRecord

	// Err is the run's error, if any.
	Err error
}

// BatchProcessor runs independent audits concurrently.
// Every audit gets its own pipeline and record; nothing is shared between runs.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each audit.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs every request and returns one result per request in
// the same order. A failed audit is reported in its result and does not stop
// the others. The returned error is non-nil only when ctx ends the batch.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))
	err := bp.ProcessBatchWithCallback(ctx, reqs, func(r BatchResult, i int) {
		// Each index is written by exactly one goroutine.
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback runs every request and calls callback as each
// audit finishes. callback is called from worker goroutines and must be safe
// for concurrent use.
//
// Design decision: Workers always return nil to the errgroup, so one failed
// audit never cancels the shared context. Audits in a batch are independent
// datasets; a malformed file should not abort the others. Only the caller's
// context ends the batch early, and requests not yet started then report
// ctx.Err() in their result.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	reqs []Request,
	callback func(result BatchResult, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_audits", len(reqs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				callback(BatchResult{Request: req, Err: ctx.Err()}, i)
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing dataset",
				"dataset", req.DatasetLocation,
				"index", i+1,
				"total", len(reqs),
			)

			rec, err := bp.pipelineFactory().Run(ctx, req)
			if err != nil {
				bp.logger.Warn("audit failed",
					"dataset", req.DatasetLocation,
					"error", err,
				)
			}
			callback(BatchResult{Request: req, Record: rec, Err: err}, i)

			// A failed audit must not cancel its siblings.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_audits", len(reqs),
		"elapsed", time.Since(startTime),
	)
	return err
}

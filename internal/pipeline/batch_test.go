package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/fairhire/internal/model"
)

func batchRequests(n int) []Request {
	reqs := make([]Request, n)
	for i := range reqs {
		reqs[i] = validRequest()
		reqs[i].ID = ""
		reqs[i].DatasetLocation = "dataset-" + string(rune('a'+i)) + ".csv"
	}
	return reqs
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected non-nil logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0))

		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns results in request order", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "echo",
				doFunc: func(_ context.Context, rec *model.AuditRecord) (model.Update, error) {
					return model.Update{
						Findings: []model.Finding{{Type: rec.DatasetLocation}},
					}, nil
				},
			})
			return p
		}, WithBatchLogger(discardLogger()))

		reqs := batchRequests(5)
		results, err := bp.ProcessBatch(t.Context(), reqs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(reqs) {
			t.Fatalf("expected %d results, got %d", len(reqs), len(results))
		}
		for i, r := range results {
			if r.Err != nil {
				t.Errorf("result %d: unexpected error %v", i, r.Err)
				continue
			}
			if r.Record.Findings[0].Type != reqs[i].DatasetLocation {
				t.Errorf("result %d: expected %s, got %s", i, reqs[i].DatasetLocation, r.Record.Findings[0].Type)
			}
		}
	})

	t.Run("failed audit does not stop the others", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "picky",
				doFunc: func(_ context.Context, rec *model.AuditRecord) (model.Update, error) {
					if rec.DatasetLocation == "dataset-b.csv" {
						return model.Update{}, model.DataUnavailable("load dataset", errors.New("corrupt"))
					}
					return model.Update{}, nil
				},
			})
			return p
		}, WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(t.Context(), batchRequests(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Error("expected sibling audits to succeed")
		}
		if !errors.Is(results[1].Err, model.ErrDataUnavailable) {
			t.Errorf("expected ErrDataUnavailable, got %v", results[1].Err)
		}
		if results[1].Record != nil {
			t.Error("expected no record for the failed audit")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		bp := NewBatchProcessor(func() *Pipeline {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(_ context.Context, _ *model.AuditRecord) (model.Update, error) {
					n := current.Add(1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					current.Add(-1)
					return model.Update{}, nil
				},
			})
			return p
		}, WithConcurrency(2), WithBatchLogger(discardLogger()))

		if _, err := bp.ProcessBatch(t.Context(), batchRequests(6)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent audits, got %d", peak.Load())
		}
	})

	t.Run("cancelled context ends the batch", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline {
			return New(WithLogger(discardLogger()))
		}, WithBatchLogger(discardLogger()))

		_, err := bp.ProcessBatch(ctx, batchRequests(3))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestBatchProcessorCallback tests streaming results through a callback.
func TestBatchProcessorCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func() *Pipeline {
		p := New(WithLogger(discardLogger()))
		p.AddStep(&mockStep{name: "noop"})
		return p
	}, WithBatchLogger(discardLogger()))

	var (
		mu   sync.Mutex
		seen = make(map[int]bool)
	)
	err := bp.ProcessBatchWithCallback(t.Context(), batchRequests(4), func(r BatchResult, i int) {
		mu.Lock()
		defer mu.Unlock()
		seen[i] = r.Err == nil && r.Record != nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range 4 {
		if !seen[i] {
			t.Errorf("expected a successful callback for index %d", i)
		}
	}
}

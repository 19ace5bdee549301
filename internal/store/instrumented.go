package store

import (
	"context"
	"time"

	"github.com/nao1215/fairhire/internal/metrics"
	"github.com/nao1215/fairhire/internal/model"
)

// Instrumented counts the operations of another Store.
type Instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

// WithMetrics wraps next so every call is counted by operation and result.
func WithMetrics(next Store, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

// Save implements Store.
func (s *Instrumented) Save(ctx context.Context, id string, rec *model.AuditRecord, ttl time.Duration) error {
	err := s.next.Save(ctx, id, rec, ttl)
	s.metrics.ObserveStoreOperation("save", outcome(err, true))
	return err
}

// Recall implements Store.
func (s *Instrumented) Recall(ctx context.Context, id string) (*model.AuditRecord, bool, error) {
	rec, found, err := s.next.Recall(ctx, id)
	s.metrics.ObserveStoreOperation("recall", outcome(err, found))
	return rec, found, err
}

// ListIDs implements Store.
func (s *Instrumented) ListIDs(ctx context.Context, prefix string) ([]string, error) {
	ids, err := s.next.ListIDs(ctx, prefix)
	s.metrics.ObserveStoreOperation("list", outcome(err, true))
	return ids, err
}

// Delete implements Store.
func (s *Instrumented) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.next.Delete(ctx, id)
	s.metrics.ObserveStoreOperation("delete", outcome(err, ok))
	return ok, err
}

// Close implements Store.
func (s *Instrumented) Close() error {
	return s.next.Close()
}

func outcome(err error, found bool) string {
	switch {
	case err != nil:
		return metrics.ResultFailure
	case !found:
		return metrics.ResultMiss
	default:
		return metrics.ResultSuccess
	}
}

// Unwrap returns the wrapped store.
func (s *Instrumented) Unwrap() Store {
	return s.next
}

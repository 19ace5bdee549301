package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	m.ObserveAudit(nil)
	m.ObserveAudit(nil)
	m.ObserveAudit(errors.New("boom"))
	m.ObserveStep("data_bias", "ran", 10*time.Millisecond)
	m.ObserveFinding("Data Bias", true)
	m.ObserveStoreOperation("recall", ResultMiss)
	m.ObserveHTTPRequest("GET", "/health", "200", time.Millisecond)

	if got := testutil.ToFloat64(m.auditsTotal.WithLabelValues(ResultSuccess)); got != 2 {
		t.Errorf("expected 2 successful audits, got %v", got)
	}
	if got := testutil.ToFloat64(m.auditsTotal.WithLabelValues(ResultFailure)); got != 1 {
		t.Errorf("expected 1 failed audit, got %v", got)
	}
	if got := testutil.ToFloat64(m.stepOutcomes.WithLabelValues("data_bias", "ran")); got != 1 {
		t.Errorf("expected 1 step outcome, got %v", got)
	}
	if got := testutil.ToFloat64(m.findingsTotal.WithLabelValues("Data Bias", "true")); got != 1 {
		t.Errorf("expected 1 biased finding, got %v", got)
	}
	if got := testutil.ToFloat64(m.storeOperationsTotal.WithLabelValues("recall", ResultMiss)); got != 1 {
		t.Errorf("expected 1 recall miss, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveAudit(nil)
	m.ObserveStep("x", "ran", time.Second)
	m.ObserveFinding("x", false)
	m.ObserveStoreOperation("save", ResultSuccess)
	m.ObserveHTTPRequest("GET", "/", "200", time.Second)
}

func TestNewRegistersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	New(reg)
}

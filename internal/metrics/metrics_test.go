package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneyplanner/internal/metrics"
)

func TestPrometheusCounters(t *testing.T) {
	p := metrics.NewPrometheus("planner")

	p.RecordOperation("record_income", metrics.OutcomeOK, time.Millisecond)
	p.RecordOperation("record_income", metrics.OutcomeOK, time.Millisecond)
	p.RecordOperation("record_income", metrics.OutcomeRejected, time.Millisecond)
	p.RecordPersist(metrics.OutcomeError, time.Millisecond)
	p.RecordEvent(metrics.OutcomeOK)
	p.RecordCircuitState("sheets", metrics.CircuitOpen)

	body := scrape(t, p)
	assert.Contains(t, body, `planner_ledger_operations_total{operation="record_income",outcome="ok"} 2`)
	assert.Contains(t, body, `planner_ledger_operations_total{operation="record_income",outcome="rejected"} 1`)
	assert.Contains(t, body, `planner_persist_total{outcome="error"} 1`)
	assert.Contains(t, body, `planner_events_published_total{outcome="ok"} 1`)
	assert.Contains(t, body, `planner_circuit_state{name="sheets"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestPrometheusHTTPAndSheets(t *testing.T) {
	p := metrics.NewPrometheus("planner")
	p.RecordHTTP("POST", "/api/income", 201, 5*time.Millisecond)
	p.RecordSheetsSync(metrics.OutcomeOK, time.Second)

	n, err := testutil.GatherAndCount(p.Registry(), "planner_http_requests_total", "planner_sheets_sync_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	body := scrape(t, p)
	assert.Contains(t, body, `planner_http_requests_total{method="POST",route="/api/income",status="201"} 1`)
}

func TestNoOpIsSilent(t *testing.T) {
	var c metrics.Collector = metrics.NoOp{}
	c.RecordOperation("reset", metrics.OutcomeOK, 0)
	c.RecordHTTP("GET", "/", 200, 0)
}

func scrape(t *testing.T, p *metrics.Prometheus) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(b)
}

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"data-quality-service/internal/metrics"
)

func family(t *testing.T, m *metrics.Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func TestMetrics_RunFinished(t *testing.T) {
	m := metrics.New("dq")
	m.RunFinished("COMPLETED", 2*time.Second)
	m.RunFinished("COMPLETED", time.Second)
	m.RunFinished("FAILED", time.Second)

	runs := family(t, m, "dq_runs_total")
	got := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		got[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"COMPLETED": 2, "FAILED": 1}, got)

	dur := family(t, m, "dq_run_duration_seconds")
	assert.Equal(t, uint64(3), dur.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_ScoresAndIssues(t *testing.T) {
	m := metrics.New("dq")
	m.Score(metrics.PhaseInitial, 85)
	m.Score(metrics.PhaseFinal, 100)
	m.IssueDetected("duplicates")

	scores := family(t, m, "dq_quality_score")
	assert.Len(t, scores.GetMetric(), 2)

	issues := family(t, m, "dq_issues_detected_total")
	require.Len(t, issues.GetMetric(), 1)
	assert.Equal(t, float64(1), issues.GetMetric()[0].GetCounter().GetValue())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("FAILED", time.Second)
		m.Score(metrics.PhaseInitial, 10)
		m.IssueDetected("outliers")
		m.Request(http.MethodGet, http.StatusOK)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New("dq")
	m.Request(http.MethodGet, http.StatusNotFound)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `dq_http_requests_total{code="404",method="GET"} 1`)
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_workflow_runs_total",
			Help: "Total number of workflow runs by outcome.",
		},
		[]string{"outcome"},
	)
	workflowRunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_workflow_run_duration_seconds",
			Help:    "End-to-end workflow run latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	workflowStepDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_workflow_step_duration_seconds",
			Help:    "Workflow step latency in seconds by step and outcome.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"step", "outcome"},
	)
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpilot_llm_requests_total",
			Help: "Total number of completion requests by outcome.",
		},
		[]string{"outcome"},
	)
	sqlRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlpilot_sql_rows_returned",
			Help:    "Row counts returned by executed queries.",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		workflowRunsTotal,
		workflowRunDurationSeconds,
		workflowStepDurationSeconds,
		llmRequestsTotal,
		sqlRowsReturned,
	)
}

func ObserveWorkflowRun(ok bool, elapsed time.Duration) {
	workflowRunsTotal.WithLabelValues(outcomeLabel(ok)).Inc()
	workflowRunDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveWorkflowStep(step string, elapsed time.Duration, ok bool) {
	workflowStepDurationSeconds.WithLabelValues(step, outcomeLabel(ok)).Observe(elapsed.Seconds())
}

// ObserveLLMRequest records one completion attempt. Outcome is "ok" or
// the provider error category.
func ObserveLLMRequest(outcome string) {
	llmRequestsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSQLRowsReturned(rows int) {
	sqlRowsReturned.Observe(float64(rows))
}

func outcomeLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

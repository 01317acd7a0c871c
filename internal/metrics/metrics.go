package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	Evaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_evaluations_total",
			Help: "Total number of SLA tracker evaluations by resulting status",
		},
		[]string{"status"},
	)

	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sla_escalations_total",
			Help: "Total number of escalation level increases by level number",
		},
		[]string{"level"},
	)

	EvaluationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sla_evaluation_errors_total",
			Help: "Total number of SLA tracker evaluations that failed",
		},
	)

	// Gauges
	ActiveTrackers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sla_active_trackers",
			Help: "Number of open trackers seen in the last worker run",
		},
	)

	LastWorkerRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sla_worker_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed worker run",
		},
	)
)

func RecordEvaluation(status string) {
	Evaluations.WithLabelValues(status).Inc()
}

func RecordEscalation(level int) {
	Escalations.WithLabelValues(strconv.Itoa(level)).Inc()
}

func RecordWorkerRun(active int, at time.Time) {
	ActiveTrackers.Set(float64(active))
	LastWorkerRun.Set(float64(at.Unix()))
}

// Package metrics holds the Prometheus collectors shared by the server and the worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "difendimi"

var (
	IntakeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intake_outcomes_total",
		Help:      "Intake loop outcomes by kind and error reason.",
	}, []string{"kind", "reason"})

	OracleCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "oracle_call_duration_seconds",
		Help:      "Completeness oracle latency by result.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"result"})

	ReportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_jobs_total",
		Help:      "Report generation jobs by result.",
	}, []string{"result"})
)

// Oracle call results.
const (
	ResultOK          = "ok"
	ResultUnreachable = "unreachable"
	ResultMalformed   = "malformed"
	ResultCanceled    = "canceled"
)

// Report job results.
const (
	ReportGenerated  = "generated"
	ReportSkipped    = "skipped"
	ReportFailed     = "failed"
	ReportDeadLetter = "dead_letter"
)

// ObserveOutcome counts one intake step. reason is empty for successes.
func ObserveOutcome(kind, reason string) {
	IntakeOutcomes.WithLabelValues(kind, reason).Inc()
}

// ObserveOracleCall records how long an oracle call took.
func ObserveOracleCall(result string, d time.Duration) {
	OracleCallDuration.WithLabelValues(result).Observe(d.Seconds())
}

func ObserveReportJob(result string) {
	ReportJobs.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

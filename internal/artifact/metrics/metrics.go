package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for artifact rendering jobs.
type Metrics struct {
	// Jobs submitted by kind
	Submitted *prometheus.CounterVec

	// Jobs finished by terminal status
	Completed *prometheus.CounterVec
}

// New creates a Metrics instance with all job metrics registered.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_artifact_jobs_submitted_total",
			Help: "Total rendering jobs submitted by kind",
		}, []string{"kind"}),

		Completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_artifact_jobs_completed_total",
			Help: "Total rendering jobs finished by status",
		}, []string{"status"}),
	}
}

// IncrementSubmitted records a submitted job.
func (m *Metrics) IncrementSubmitted(kind string) {
	if m != nil {
		m.Submitted.WithLabelValues(kind).Inc()
	}
}

// IncrementCompleted records a finished job.
func (m *Metrics) IncrementCompleted(status string) {
	if m != nil {
		m.Completed.WithLabelValues(status).Inc()
	}
}

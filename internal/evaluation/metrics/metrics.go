package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation engine.
type Metrics struct {
	// Batch sizes of successful compute runs
	BatchSize prometheus.Histogram

	// Applications a batch failed to update
	ComputeFailures prometheus.Counter
}

// New creates a Metrics instance with all evaluation metrics registered.
func New() *Metrics {
	return &Metrics{
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "admissio_evaluation_batch_size",
			Help:    "Applications evaluated per compute batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		ComputeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admissio_evaluation_compute_failures_total",
			Help: "Total applications a compute batch failed to update",
		}),
	}
}

// ObserveBatch records the size of a computed batch.
func (m *Metrics) ObserveBatch(size int) {
	if m != nil {
		m.BatchSize.Observe(float64(size))
	}
}

// IncrementComputeFailure records one failed application in a batch.
func (m *Metrics) IncrementComputeFailure() {
	if m != nil {
		m.ComputeFailures.Inc()
	}
}

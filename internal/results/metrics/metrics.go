package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the results allocator.
type Metrics struct {
	// Publications and closures by outcome
	Publications *prometheus.CounterVec

	// Seats admitted per publication
	AdmittedPerPublish prometheus.Histogram

	// Duration of the publish critical section
	PublishLatency prometheus.Histogram
}

// New creates a Metrics instance with all allocator metrics registered.
func New() *Metrics {
	return &Metrics{
		Publications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_result_publications_total",
			Help: "Total publication operations by kind (publish, replay, close)",
		}, []string{"kind"}),

		AdmittedPerPublish: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "admissio_result_admitted_per_publish",
			Help:    "Admitted applications per publication",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),

		PublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "admissio_result_publish_duration_seconds",
			Help:    "Duration of the publish critical section",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementPublication records a publish, replay or close.
func (m *Metrics) IncrementPublication(kind string) {
	if m != nil {
		m.Publications.WithLabelValues(kind).Inc()
	}
}

// ObserveAdmitted records how many applications a publication admitted.
func (m *Metrics) ObserveAdmitted(n int) {
	if m != nil {
		m.AdmittedPerPublish.Observe(float64(n))
	}
}

// ObservePublishLatency records the publish critical section duration.
func (m *Metrics) ObservePublishLatency(d time.Duration) {
	if m != nil {
		m.PublishLatency.Observe(d.Seconds())
	}
}

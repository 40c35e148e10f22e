package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment gate.
type Metrics struct {
	// Payments started, by method
	Started *prometheus.CounterVec

	// Payment outcomes, by final status
	Outcomes *prometheus.CounterVec

	// Voids of already-paid payments flagged for reconciliation
	VoidAnomalies prometheus.Counter
}

// New creates a Metrics instance with all payment metrics registered.
func New() *Metrics {
	return &Metrics{
		Started: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_payments_started_total",
			Help: "Total payments started by method",
		}, []string{"method"}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_payment_outcomes_total",
			Help: "Total payment outcomes by final status",
		}, []string{"status"}),

		VoidAnomalies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "admissio_payment_void_anomalies_total",
			Help: "Total paid payments voided after the application advanced",
		}),
	}
}

// IncrementStarted records a started payment.
func (m *Metrics) IncrementStarted(method string) {
	if m != nil {
		m.Started.WithLabelValues(method).Inc()
	}
}

// IncrementOutcome records a payment reaching a final status.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// IncrementVoidAnomaly records a void flagged for manual reconciliation.
func (m *Metrics) IncrementVoidAnomaly() {
	if m != nil {
		m.VoidAnomalies.Inc()
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application lifecycle module.
type Metrics struct {
	// Applications created, by call code
	Created *prometheus.CounterVec

	// Lifecycle transitions, by target status
	Transitions *prometheus.CounterVec

	// Transitions rejected by the state machine or lost to a race
	TransitionFailures *prometheus.CounterVec
}

// New creates a Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_applications_created_total",
			Help: "Total applications created by admission call code",
		}, []string{"call"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_application_transitions_total",
			Help: "Total lifecycle transitions by target status",
		}, []string{"to"}),

		TransitionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_application_transition_failures_total",
			Help: "Total rejected or lost lifecycle transitions by target status",
		}, []string{"to"}),
	}
}

// IncrementCreated records a new application for a call.
func (m *Metrics) IncrementCreated(callCode string) {
	if m != nil {
		m.Created.WithLabelValues(callCode).Inc()
	}
}

// IncrementTransition records a successful lifecycle transition.
func (m *Metrics) IncrementTransition(to string) {
	if m != nil {
		m.Transitions.WithLabelValues(to).Inc()
	}
}

// IncrementTransitionFailure records a rejected or lost transition.
func (m *Metrics) IncrementTransitionFailure(to string) {
	if m != nil {
		m.TransitionFailures.WithLabelValues(to).Inc()
	}
}

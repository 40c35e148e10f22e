package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document review engine.
type Metrics struct {
	// Uploads, by document type
	Uploaded *prometheus.CounterVec

	// Review verdicts, by outcome
	Reviewed *prometheus.CounterVec
}

// New creates a Metrics instance with all document metrics registered.
func New() *Metrics {
	return &Metrics{
		Uploaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_documents_uploaded_total",
			Help: "Total document uploads by document type",
		}, []string{"type"}),

		Reviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "admissio_documents_reviewed_total",
			Help: "Total document review verdicts by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementUploaded records a document upload.
func (m *Metrics) IncrementUploaded(docType string) {
	if m != nil {
		m.Uploaded.WithLabelValues(docType).Inc()
	}
}

// IncrementReviewed records a review verdict.
func (m *Metrics) IncrementReviewed(outcome string) {
	if m != nil {
		m.Reviewed.WithLabelValues(outcome).Inc()
	}
}

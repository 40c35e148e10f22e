// Package audit captures the append-only administrative trail of the
// admission process. Events are transport-agnostic; stores and sinks fan
// them out (memory for tests, postgres outbox + Kafka relay in production).
package audit

import (
	"time"
)

// Action names a recorded admission event.
type Action string

const (
	ActionApplicationCreated Action = "application_created"
	ActionPaymentStarted     Action = "payment_started"
	ActionPaymentConfirmed   Action = "payment_confirmed"
	ActionPaymentFailed      Action = "payment_failed"
	ActionPaymentVoided      Action = "payment_voided"
	// ActionPaymentVoidAnomaly marks a payment voided after the application
	// already advanced past payment. Flagged for manual reconciliation;
	// never auto-reversed.
	ActionPaymentVoidAnomaly Action = "payment_void_anomaly"
	ActionDocumentUploaded   Action = "document_uploaded"
	ActionDocumentReviewed   Action = "document_reviewed"
	ActionDocsCompleted      Action = "docs_completed"
	ActionEvaluationComputed Action = "evaluation_computed"
	ActionResultApplied      Action = "result_applied"
	ActionResultsPublished   Action = "results_published"
	ActionResultsClosed      Action = "results_closed"
)

// Event is one entry in the admission audit trail.
type Event struct {
	Timestamp     time.Time
	Action        Action
	ApplicationID string
	CallID        string
	CareerID      string
	Actor         string
	Detail        string
	RequestID     string
}

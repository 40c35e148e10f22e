// Package application owns the Application aggregate and its lifecycle
// state machine. Every other engine (payment, documents, evaluation,
// results) mutates an application only through this package's service.
package application

import (
	"fmt"
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// Status is the lifecycle state of an application.
//
// The machine is linear with one terminal fan-out:
//
//	CREATED → PENDING_PAYMENT → PAYMENT_CONFIRMED → DOCS_PENDING
//	  → DOCS_COMPLETE → EVALUATED → {ADMITTED | WAITING_LIST | REJECTED}
//
// Document rejection keeps an application in DOCS_PENDING; it never moves
// backwards. WAITING_LIST may still become REJECTED when a results pair is
// closed; ADMITTED and REJECTED are final.
type Status string

const (
	StatusCreated          Status = "CREATED"
	StatusPendingPayment   Status = "PENDING_PAYMENT"
	StatusPaymentConfirmed Status = "PAYMENT_CONFIRMED"
	StatusDocsPending      Status = "DOCS_PENDING"
	StatusDocsComplete     Status = "DOCS_COMPLETE"
	StatusEvaluated        Status = "EVALUATED"
	StatusAdmitted         Status = "ADMITTED"
	StatusWaitingList      Status = "WAITING_LIST"
	StatusRejected         Status = "REJECTED"
)

// allowedTransitions is the single source of truth for the state machine.
var allowedTransitions = map[Status][]Status{
	StatusCreated:          {StatusPendingPayment},
	StatusPendingPayment:   {StatusPaymentConfirmed},
	StatusPaymentConfirmed: {StatusDocsPending},
	StatusDocsPending:      {StatusDocsComplete},
	StatusDocsComplete:     {StatusEvaluated},
	StatusEvaluated:        {StatusEvaluated, StatusAdmitted, StatusWaitingList, StatusRejected},
	StatusWaitingList:      {StatusRejected},
}

// CanTransitionTo reports whether the machine allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether no operation may mutate the application again.
func (s Status) IsFinal() bool {
	return s == StatusAdmitted || s == StatusRejected
}

// Outcome is a result applied by the allocator.
type Outcome = Status

// ParseOutcome validates an allocation outcome value.
func ParseOutcome(s string) (Outcome, error) {
	switch Status(s) {
	case StatusAdmitted, StatusWaitingList, StatusRejected:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "outcome must be ADMITTED, WAITING_LIST or REJECTED")
}

// Application is one applicant's case within one admission call.
//
// Invariants:
//   - belongs to exactly one call and one applicant
//   - preferences are 1..call.MaxPreferences distinct careers offered by
//     the call (validated at creation; immutable afterwards)
//   - Sequence is unique and monotonic per call; Number derives from it
//   - status only moves along allowedTransitions
type Application struct {
	ID          id.ApplicationID `json:"id"`
	CallID      id.CallID        `json:"call_id"`
	ApplicantID id.ApplicantID   `json:"applicant_id"`
	Preferences []id.CareerID    `json:"career_preferences"`
	Status      Status           `json:"status"`
	Number      string           `json:"application_number"`
	Sequence    int              `json:"-"`
	FinalScore  *float64         `json:"final_score,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FormatNumber builds the human-readable application number from the call
// code and the per-call sequence, zero-padded.
func FormatNumber(callCode string, seq int) string {
	return fmt.Sprintf("%s-%05d", callCode, seq)
}

// Prefers reports whether careerID appears in the preference list.
func (a *Application) Prefers(careerID id.CareerID) bool {
	for _, p := range a.Preferences {
		if p == careerID {
			return true
		}
	}
	return false
}

func (a *Application) transitionError(expected Status) error {
	return dErrors.Newf(dErrors.CodeInvalidState,
		"application %s: expected %s, got %s", a.Number, expected, a.Status)
}

// CanAdvanceAfterPayment checks the payment-confirmed transition.
func (a *Application) CanAdvanceAfterPayment() error {
	if a.Status != StatusPendingPayment {
		return a.transitionError(StatusPendingPayment)
	}
	return nil
}

// ApplyPaymentConfirmed moves PENDING_PAYMENT through PAYMENT_CONFIRMED to
// DOCS_PENDING. The intermediate state has no externally observable
// behavior of its own, so the two hops are applied together.
func (a *Application) ApplyPaymentConfirmed() {
	a.Status = StatusDocsPending
}

// MarkDocsComplete moves DOCS_PENDING to DOCS_COMPLETE. Idempotent: an
// application already in DOCS_COMPLETE is left untouched.
func (a *Application) MarkDocsComplete() (changed bool, err error) {
	switch a.Status {
	case StatusDocsComplete:
		return false, nil
	case StatusDocsPending:
		a.Status = StatusDocsComplete
		return true, nil
	default:
		return false, a.transitionError(StatusDocsPending)
	}
}

// RecordEvaluation stores the final score and moves to EVALUATED. An
// application already EVALUATED accepts a recompute; anything else is an
// invalid state.
func (a *Application) RecordEvaluation(finalScore float64) error {
	if a.Status != StatusDocsComplete && a.Status != StatusEvaluated {
		return a.transitionError(StatusDocsComplete)
	}
	if finalScore < 0 {
		return dErrors.New(dErrors.CodeValidation, "final score must not be negative")
	}
	a.Status = StatusEvaluated
	a.FinalScore = &finalScore
	return nil
}

// ApplyResult moves EVALUATED to a terminal outcome, or WAITING_LIST to
// REJECTED when a pair is closed.
func (a *Application) ApplyResult(outcome Outcome) error {
	if !a.Status.CanTransitionTo(outcome) || a.Status == StatusEvaluated && outcome == StatusEvaluated {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"application %s: cannot apply result %s in state %s", a.Number, outcome, a.Status)
	}
	a.Status = outcome
	return nil
}

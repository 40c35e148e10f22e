package application

import (
	"context"

	id "admissio/pkg/domain"
)

// Store persists applications. Implementations are pure I/O: all lifecycle
// rules live in the service and the model. UpdateStatus is a compare-and-swap
// so concurrent transitions on the same row cannot both win.
type Store interface {
	// Create inserts a new application row.
	Create(ctx context.Context, a *Application) error

	// NextSequence atomically allocates the next per-call sequence number,
	// starting at 1.
	NextSequence(ctx context.Context, callID id.CallID) (int, error)

	GetByID(ctx context.Context, applicationID id.ApplicationID) (*Application, error)

	// GetActiveByApplicant returns the applicant's non-REJECTED application
	// for the call, or CodeNotFound when none exists.
	GetActiveByApplicant(ctx context.Context, callID id.CallID, applicantID id.ApplicantID) (*Application, error)

	ListByApplicant(ctx context.Context, applicantID id.ApplicantID) ([]*Application, error)
	ListByCall(ctx context.Context, callID id.CallID) ([]*Application, error)
	ListByCallAndStatus(ctx context.Context, callID id.CallID, status Status) ([]*Application, error)

	// UpdateStatus moves the application from the expected status to the new
	// one, optionally setting the final score. It returns
	// CodeInvariantViolation when the row is no longer in the expected
	// status, which callers surface as a lost race.
	UpdateStatus(ctx context.Context, applicationID id.ApplicationID, from, to Status, finalScore *float64) error
}

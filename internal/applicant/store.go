package applicant

import (
	"context"

	id "admissio/pkg/domain"
)

// Store is the applicant persistence boundary.
type Store interface {
	// Create persists a new profile. Returns CodeConflict when the
	// national ID or subject already has a profile.
	Create(ctx context.Context, a *Applicant) error
	GetByID(ctx context.Context, applicantID id.ApplicantID) (*Applicant, error)
	GetBySubject(ctx context.Context, subject string) (*Applicant, error)
}

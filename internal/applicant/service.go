package applicant

import (
	"context"
	"log/slog"
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/requestcontext"
)

// Service manages applicant profiles. Creation is caller-bound: the
// profile belongs to the authenticated subject, so one account cannot
// register a profile for someone else.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateParams carries the profile fields supplied by the caller.
type CreateParams struct {
	NationalID string
	FullName   string
	Email      string
	Phone      string
	BirthDate  time.Time
}

// Create registers the caller's profile.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Applicant, error) {
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	now := requestcontext.Now(ctx)

	a, err := NewApplicant(id.NewApplicantID(), subject, p.NationalID, p.FullName, p.Email, p.Phone, p.BirthDate, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "applicant profile created",
		"request_id", requestcontext.RequestID(ctx),
		"applicant_id", a.ID,
	)
	return a, nil
}

// Me returns the caller's profile.
func (s *Service) Me(ctx context.Context) (*Applicant, error) {
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return s.store.GetBySubject(ctx, subject)
}

// Get returns a profile by ID.
func (s *Service) Get(ctx context.Context, applicantID id.ApplicantID) (*Applicant, error) {
	return s.store.GetByID(ctx, applicantID)
}

package application

import (
	"context"
	"log/slog"

	"admissio/internal/applicant"
	"admissio/internal/application/metrics"
	"admissio/internal/catalog"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	"admissio/pkg/requestcontext"
)

// CatalogReader is the slice of the catalog the lifecycle needs.
type CatalogReader interface {
	GetCall(ctx context.Context, callID id.CallID) (*catalog.AdmissionCall, error)
}

// ParamsReader supplies the global admission defaults.
type ParamsReader interface {
	Get(ctx context.Context) (*catalog.Params, error)
}

// ApplicantReader resolves the caller's profile.
type ApplicantReader interface {
	GetBySubject(ctx context.Context, subject string) (*applicant.Applicant, error)
	GetByID(ctx context.Context, applicantID id.ApplicantID) (*applicant.Applicant, error)
}

// Service owns the application lifecycle. All status transitions funnel
// through here; the payment, document, evaluation and results engines call
// the transition methods instead of writing status themselves.
type Service struct {
	store      Store
	calls      CatalogReader
	params     ParamsReader
	applicants ApplicantReader
	audit      *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(store Store, calls CatalogReader, params ParamsReader, applicants ApplicantReader, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		calls:      calls,
		params:     params,
		applicants: applicants,
		audit:      auditor,
		metrics:    m,
		logger:     logger,
	}
}

// CreateParams carries the caller's registration request.
type CreateParams struct {
	CallID      id.CallID
	Preferences []id.CareerID
}

// Create registers the caller for an admission call.
//
// Rejections, in check order: unknown call, registration window closed,
// empty or oversized or duplicated or unoffered preferences, age outside
// bounds, and an existing non-rejected application for the same call.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Application, error) {
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	person, err := s.applicants.GetBySubject(ctx, subject)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "applicant profile required before applying")
		}
		return nil, err
	}

	call, err := s.calls.GetCall(ctx, p.CallID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !call.IsOpenForRegistration(now) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "call %s is not open for registration", call.Code)
	}
	if err := s.validatePreferences(call, p.Preferences); err != nil {
		return nil, err
	}
	if err := s.validateAge(ctx, call, person.AgeAt(now)); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetActiveByApplicant(ctx, call.ID, person.ID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeDuplicateApplication,
			"applicant already holds application %s for call %s", existing.Number, call.Code)
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	seq, err := s.store.NextSequence(ctx, call.ID)
	if err != nil {
		return nil, err
	}

	// Creation lands directly in PENDING_PAYMENT: there is nothing to do
	// in CREATED, it exists only as the machine's origin.
	a := &Application{
		ID:          id.NewApplicationID(),
		CallID:      call.ID,
		ApplicantID: person.ID,
		Preferences: append([]id.CareerID(nil), p.Preferences...),
		Status:      StatusPendingPayment,
		Number:      FormatNumber(call.Code, seq),
		Sequence:    seq,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionApplicationCreated,
		ApplicationID: a.ID.String(),
		CallID:        call.ID.String(),
		Detail:        a.Number,
	})
	s.metrics.IncrementCreated(call.Code)
	s.logger.InfoContext(ctx, "application created",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
		"application_number", a.Number,
		"call", call.Code,
	)
	return a, nil
}

func (s *Service) validatePreferences(call *catalog.AdmissionCall, prefs []id.CareerID) error {
	if len(prefs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one career preference is required")
	}
	if len(prefs) > call.MaxPreferences {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d career preferences allowed", call.MaxPreferences)
	}
	seen := make(map[id.CareerID]struct{}, len(prefs))
	for _, careerID := range prefs {
		if _, dup := seen[careerID]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "career %s listed more than once", careerID)
		}
		seen[careerID] = struct{}{}
		if _, ok := call.Offer(careerID); !ok {
			return dErrors.Newf(dErrors.CodeValidation, "career %s is not offered by this call", careerID)
		}
	}
	return nil
}

// validateAge resolves age bounds from the call first, falling back to the
// global admission params for bounds the call leaves unset.
func (s *Service) validateAge(ctx context.Context, call *catalog.AdmissionCall, age int) error {
	minAge, maxAge := call.MinimumAge, call.MaximumAge
	if minAge == nil || maxAge == nil {
		params, err := s.params.Get(ctx)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if params != nil {
			if minAge == nil {
				minAge = params.MinimumAge
			}
			if maxAge == nil {
				maxAge = params.MaximumAge
			}
		}
	}
	if minAge != nil && age < *minAge {
		return dErrors.Newf(dErrors.CodeValidation, "applicant must be at least %d years old", *minAge)
	}
	if maxAge != nil && age > *maxAge {
		return dErrors.Newf(dErrors.CodeValidation, "applicant must be at most %d years old", *maxAge)
	}
	return nil
}

// Get returns an application by ID.
func (s *Service) Get(ctx context.Context, applicationID id.ApplicationID) (*Application, error) {
	return s.store.GetByID(ctx, applicationID)
}

// ListMine returns the caller's applications across calls.
func (s *Service) ListMine(ctx context.Context) ([]*Application, error) {
	subject := requestcontext.Subject(ctx)
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	person, err := s.applicants.GetBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	return s.store.ListByApplicant(ctx, person.ID)
}

// ListByCall returns every application in a call, ordered by sequence.
func (s *Service) ListByCall(ctx context.Context, callID id.CallID) ([]*Application, error) {
	if _, err := s.calls.GetCall(ctx, callID); err != nil {
		return nil, err
	}
	return s.store.ListByCall(ctx, callID)
}

// ListByCallAndStatus returns a call's applications in one lifecycle
// state, ordered by sequence.
func (s *Service) ListByCallAndStatus(ctx context.Context, callID id.CallID, status Status) ([]*Application, error) {
	return s.store.ListByCallAndStatus(ctx, callID, status)
}

// AdvanceAfterPayment moves a PENDING_PAYMENT application to DOCS_PENDING.
// Called by the payment engine on confirmation.
func (s *Service) AdvanceAfterPayment(ctx context.Context, applicationID id.ApplicationID) (*Application, error) {
	a, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := a.CanAdvanceAfterPayment(); err != nil {
		s.metrics.IncrementTransitionFailure(string(StatusDocsPending))
		return nil, err
	}
	a.ApplyPaymentConfirmed()
	if err := s.store.UpdateStatus(ctx, a.ID, StatusPendingPayment, a.Status, nil); err != nil {
		s.metrics.IncrementTransitionFailure(string(a.Status))
		return nil, err
	}
	s.metrics.IncrementTransition(string(a.Status))
	return a, nil
}

// MarkDocsComplete moves a DOCS_PENDING application to DOCS_COMPLETE.
// Idempotent; called by the document review engine.
func (s *Service) MarkDocsComplete(ctx context.Context, applicationID id.ApplicationID) (*Application, error) {
	a, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	changed, err := a.MarkDocsComplete()
	if err != nil {
		s.metrics.IncrementTransitionFailure(string(StatusDocsComplete))
		return nil, err
	}
	if !changed {
		return a, nil
	}
	if err := s.store.UpdateStatus(ctx, a.ID, StatusDocsPending, StatusDocsComplete, nil); err != nil {
		s.metrics.IncrementTransitionFailure(string(StatusDocsComplete))
		return nil, err
	}
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionDocsCompleted,
		ApplicationID: a.ID.String(),
		CallID:        a.CallID.String(),
	})
	s.metrics.IncrementTransition(string(StatusDocsComplete))
	return a, nil
}

// RecordEvaluation stores a final score and moves to EVALUATED. A second
// call on an EVALUATED application overwrites the score.
func (s *Service) RecordEvaluation(ctx context.Context, applicationID id.ApplicationID, finalScore float64) (*Application, error) {
	a, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if err := a.RecordEvaluation(finalScore); err != nil {
		s.metrics.IncrementTransitionFailure(string(StatusEvaluated))
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, a.ID, from, StatusEvaluated, a.FinalScore); err != nil {
		s.metrics.IncrementTransitionFailure(string(StatusEvaluated))
		return nil, err
	}
	s.metrics.IncrementTransition(string(StatusEvaluated))
	return a, nil
}

// ApplyResult moves an application to its allocation outcome. Used by the
// results allocator for publication (EVALUATED to terminal or waiting
// list) and closure (WAITING_LIST to REJECTED).
func (s *Service) ApplyResult(ctx context.Context, applicationID id.ApplicationID, outcome Outcome) (*Application, error) {
	a, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if err := a.ApplyResult(outcome); err != nil {
		s.metrics.IncrementTransitionFailure(string(outcome))
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, a.ID, from, outcome, nil); err != nil {
		s.metrics.IncrementTransitionFailure(string(outcome))
		return nil, err
	}
	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionResultApplied,
		ApplicationID: a.ID.String(),
		CallID:        a.CallID.String(),
		Detail:        string(outcome),
	})
	s.metrics.IncrementTransition(string(outcome))
	return a, nil
}

package payment

import (
	"context"
	"log/slog"

	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/payment/metrics"
	"admissio/internal/payment/ports"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	"admissio/pkg/requestcontext"
)

// Lifecycle is the slice of the application service the gate drives.
type Lifecycle interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
	AdvanceAfterPayment(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
}

// CatalogReader supplies the fee to snapshot at start time.
type CatalogReader interface {
	GetCall(ctx context.Context, callID id.CallID) (*catalog.AdmissionCall, error)
}

// ArtifactSubmitter hands receipt rendering to the artifact collaborator.
// Optional; a nil submitter skips receipts.
type ArtifactSubmitter interface {
	Submit(ctx context.Context, kind string, payload any) (id.JobID, error)
}

// Service is the payment gate. It owns payment state and is the only
// caller of the lifecycle's payment transition.
type Service struct {
	store     Store
	lifecycle Lifecycle
	calls     CatalogReader
	checkout  ports.CheckoutPort
	artifacts ArtifactSubmitter
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(store Store, lifecycle Lifecycle, calls CatalogReader, checkout ports.CheckoutPort, artifacts ArtifactSubmitter, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		lifecycle: lifecycle,
		calls:     calls,
		checkout:  checkout,
		artifacts: artifacts,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
	}
}

// Start opens a payment for an application.
//
// Idempotent for retries: when a PENDING payment already exists it is
// returned as-is instead of opening a second one. An application with a
// PAID payment gets CodeAlreadyPaid; an application past PENDING_PAYMENT
// gets CodeInvalidState.
func (s *Service) Start(ctx context.Context, applicationID id.ApplicationID, method Method) (*Payment, error) {
	a, err := s.lifecycle.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetPaidByApplication(ctx, applicationID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeAlreadyPaid, "application %s is already paid", a.Number)
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	if a.Status != application.StatusPendingPayment {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"application %s: expected %s, got %s", a.Number, application.StatusPendingPayment, a.Status)
	}

	if pending, err := s.store.GetPendingByApplication(ctx, applicationID); err == nil {
		return pending, nil
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	call, err := s.calls.GetCall(ctx, a.CallID)
	if err != nil {
		return nil, err
	}

	p := &Payment{
		ID:            id.NewPaymentID(),
		ApplicationID: a.ID,
		Method:        method,
		Status:        StatusPending,
		Amount:        call.ApplicationFee,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if method == MethodPSP {
		order, err := s.checkout.CreateOrder(ctx, a.Number, p.Amount)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "checkout provider unavailable")
		}
		p.OrderID = order.OrderID
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionPaymentStarted,
		ApplicationID: a.ID.String(),
		CallID:        a.CallID.String(),
		Detail:        string(method),
	})
	s.metrics.IncrementStarted(string(method))
	s.logger.InfoContext(ctx, "payment started",
		"request_id", requestcontext.RequestID(ctx),
		"payment_id", p.ID,
		"application_id", a.ID,
		"method", method,
		"amount", p.Amount,
	)
	return p, nil
}

// Confirm settles a payment and advances the application lifecycle.
//
// Idempotent: confirming an already-PAID payment returns it unchanged and
// does not advance the lifecycle a second time. The settle and the
// lifecycle advance are separate writes, so a replay must also finish an
// advance that a prior confirm settled but failed to deliver.
func (s *Service) Confirm(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	alreadyPaid, err := p.CanConfirm()
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		if err := s.ensureAdvanced(ctx, p.ApplicationID); err != nil {
			return nil, err
		}
		return p, nil
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, p.ID, StatusPending, StatusPaid, now); err != nil {
		// a concurrent confirm won the race; treat the settled row as done
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			if err := s.ensureAdvanced(ctx, p.ApplicationID); err != nil {
				return nil, err
			}
			return s.store.GetByID(ctx, p.ID)
		}
		return nil, err
	}
	p.Status = StatusPaid
	p.PaidAt = &now

	if _, err := s.lifecycle.AdvanceAfterPayment(ctx, p.ApplicationID); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionPaymentConfirmed,
		ApplicationID: p.ApplicationID.String(),
		Detail:        p.OrderID,
	})
	s.metrics.IncrementOutcome(string(StatusPaid))
	s.logger.InfoContext(ctx, "payment confirmed",
		"request_id", requestcontext.RequestID(ctx),
		"payment_id", p.ID,
		"application_id", p.ApplicationID,
	)

	// receipt is best-effort; settlement stands even if rendering fails
	if s.artifacts != nil {
		jobID, err := s.artifacts.Submit(ctx, "receipt", p)
		if err != nil {
			s.logger.WarnContext(ctx, "receipt submission failed",
				"request_id", requestcontext.RequestID(ctx),
				"payment_id", p.ID,
				"error", err,
			)
		} else {
			s.logger.InfoContext(ctx, "receipt submitted",
				"request_id", requestcontext.RequestID(ctx),
				"payment_id", p.ID,
				"job_id", jobID,
			)
		}
	}
	return p, nil
}

// ensureAdvanced retries the post-settlement lifecycle advance. An
// application that already left PENDING_PAYMENT is done; one still there
// gets the advance it missed.
func (s *Service) ensureAdvanced(ctx context.Context, applicationID id.ApplicationID) error {
	a, err := s.lifecycle.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if a.Status != application.StatusPendingPayment {
		return nil
	}
	if _, err := s.lifecycle.AdvanceAfterPayment(ctx, applicationID); err != nil {
		// a concurrent replay advanced it first
		if dErrors.HasCode(err, dErrors.CodeInvalidState) || dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil
		}
		return err
	}
	s.logger.WarnContext(ctx, "recovered missed lifecycle advance for settled payment",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", applicationID,
	)
	return nil
}

// Fail marks a PENDING payment as FAILED. The application stays in
// PENDING_PAYMENT so the applicant can start a fresh attempt.
func (s *Service) Fail(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.CanFail(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, p.ID, StatusPending, StatusFailed, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	p.Status = StatusFailed

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionPaymentFailed,
		ApplicationID: p.ApplicationID.String(),
		Detail:        p.OrderID,
	})
	s.metrics.IncrementOutcome(string(StatusFailed))
	return p, nil
}

// Void cancels a PAID payment administratively.
//
// Voiding never rolls the application back. When the application has
// already advanced past payment, the void is recorded as an anomaly
// requiring manual reconciliation, and recording it must succeed for the
// void to go through.
func (s *Service) Void(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.CanVoid(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateStatus(ctx, p.ID, StatusPaid, StatusVoided, now); err != nil {
		return nil, err
	}
	p.Status = StatusVoided
	p.VoidedAt = &now

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionPaymentVoided,
		ApplicationID: p.ApplicationID.String(),
		Detail:        p.OrderID,
	})
	s.metrics.IncrementOutcome(string(StatusVoided))

	a, err := s.lifecycle.Get(ctx, p.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != application.StatusPendingPayment {
		if err := s.audit.EmitStrict(ctx, audit.Event{
			Action:        audit.ActionPaymentVoidAnomaly,
			ApplicationID: a.ID.String(),
			CallID:        a.CallID.String(),
			Detail:        string(a.Status),
		}); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "record void anomaly")
		}
		s.metrics.IncrementVoidAnomaly()
		s.logger.WarnContext(ctx, "paid payment voided after lifecycle advanced, manual reconciliation required",
			"request_id", requestcontext.RequestID(ctx),
			"payment_id", p.ID,
			"application_id", a.ID,
			"application_status", a.Status,
		)
	}
	return p, nil
}

// Status returns the effective payment status of an application: the most
// recent non-VOIDED attempt, or PENDING when no attempt exists yet.
func (s *Service) Status(ctx context.Context, applicationID id.ApplicationID) (Status, error) {
	if _, err := s.lifecycle.Get(ctx, applicationID); err != nil {
		return "", err
	}
	attempts, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return "", err
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Status != StatusVoided {
			return attempts[i].Status, nil
		}
	}
	return StatusPending, nil
}

// List returns every payment attempt for an application, oldest first.
func (s *Service) List(ctx context.Context, applicationID id.ApplicationID) ([]*Payment, error) {
	return s.store.ListByApplication(ctx, applicationID)
}

// ListByStatus returns every payment in a status, oldest first. Used by
// the cashier console to work the PENDING queue.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]*Payment, error) {
	return s.store.ListByStatus(ctx, status)
}

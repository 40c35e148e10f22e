package payment

import (
	"context"
	"time"

	id "admissio/pkg/domain"
)

// Store persists payments. UpdateStatus is a compare-and-swap like the
// application store's, so a webhook and a cashier cannot both move the
// same payment.
type Store interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, paymentID id.PaymentID) (*Payment, error)

	// GetPendingByApplication returns the application's PENDING payment,
	// or CodeNotFound when none exists.
	GetPendingByApplication(ctx context.Context, applicationID id.ApplicationID) (*Payment, error)

	// GetPaidByApplication returns the application's PAID payment, or
	// CodeNotFound when none exists.
	GetPaidByApplication(ctx context.Context, applicationID id.ApplicationID) (*Payment, error)

	// ListByApplication returns every payment attempt, oldest first.
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]*Payment, error)

	// ListByStatus returns every payment in the given status, oldest
	// first. Backs the administrative listing.
	ListByStatus(ctx context.Context, status Status) ([]*Payment, error)

	// UpdateStatus moves the payment from the expected status to the new
	// one, stamping at into the matching timestamp column. Returns
	// CodeInvariantViolation when the row already left the expected status.
	UpdateStatus(ctx context.Context, paymentID id.PaymentID, from, to Status, at time.Time) error
}

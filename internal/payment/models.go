// Package payment tracks admission fee payments and gates lifecycle
// progression: an application leaves PENDING_PAYMENT only when a payment
// here reaches PAID.
package payment

import (
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// Method is how the fee is collected.
type Method string

const (
	// MethodPSP goes through the external payment service provider; the
	// checkout adapter supplies the order reference.
	MethodPSP Method = "PSP"
	// MethodCashier is collected at the institution's cashier window.
	MethodCashier Method = "CASHIER"
)

// ParseMethod validates a payment method value.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodPSP, MethodCashier:
		return Method(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "method must be PSP or CASHIER")
}

// Status is the payment state.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	StatusFailed  Status = "FAILED"
	StatusVoided  Status = "VOIDED"
)

// ParseStatus validates a payment status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusFailed, StatusVoided:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "status must be PENDING, PAID, FAILED or VOIDED")
}

// Payment is one fee collection attempt for an application.
//
// Invariants:
//   - at most one PENDING payment per application at a time
//   - at most one PAID payment per application, ever (voiding a PAID
//     payment is flagged as an anomaly, not undone)
//   - Amount snapshots the call's fee at start time; later fee changes do
//     not retouch existing payments
type Payment struct {
	ID            id.PaymentID     `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Method        Method           `json:"method"`
	Status        Status           `json:"status"`
	OrderID       string           `json:"order_id,omitempty"`
	Amount        float64          `json:"amount"`
	CreatedAt     time.Time        `json:"created_at"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	VoidedAt      *time.Time       `json:"voided_at,omitempty"`
}

// CanConfirm checks the PENDING to PAID transition. An already-PAID
// payment reports alreadyPaid so the caller can treat confirm as a no-op.
func (p *Payment) CanConfirm() (alreadyPaid bool, err error) {
	switch p.Status {
	case StatusPaid:
		return true, nil
	case StatusPending:
		return false, nil
	default:
		return false, dErrors.Newf(dErrors.CodeInvalidState,
			"payment %s: expected %s, got %s", p.ID, StatusPending, p.Status)
	}
}

// CanFail checks the PENDING to FAILED transition.
func (p *Payment) CanFail() error {
	if p.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"payment %s: expected %s, got %s", p.ID, StatusPending, p.Status)
	}
	return nil
}

// CanVoid checks the transition to VOIDED. Only PAID payments may be
// voided; an open PENDING attempt is closed with Fail instead.
func (p *Payment) CanVoid() error {
	if p.Status != StatusPaid {
		return dErrors.Newf(dErrors.CodeInvalidState,
			"payment %s: expected %s, got %s", p.ID, StatusPaid, p.Status)
	}
	return nil
}

package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	txcontext "admissio/pkg/platform/tx"
)

// PostgresStore persists payments. The single-pending and single-paid
// invariants are backed by partial unique indexes on (application_id)
// WHERE status = 'PENDING' / 'PAID'.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const paymentColumns = `id, application_id, method, status, order_id, amount, created_at, paid_at, voided_at`

func (s *PostgresStore) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ApplicationID), string(p.Method), string(p.Status),
		p.OrderID, p.Amount, p.CreatedAt, p.PaidAt, p.VoidedAt,
	)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(paymentID)))
}

func (s *PostgresStore) GetPendingByApplication(ctx context.Context, applicationID id.ApplicationID) (*Payment, error) {
	return s.getByStatus(ctx, applicationID, StatusPending)
}

func (s *PostgresStore) GetPaidByApplication(ctx context.Context, applicationID id.ApplicationID) (*Payment, error) {
	return s.getByStatus(ctx, applicationID, StatusPaid)
}

func (s *PostgresStore) getByStatus(ctx context.Context, applicationID id.ApplicationID, status Status) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE application_id = $1 AND status = $2`
	return scanPayment(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(applicationID), string(status)))
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]*Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE application_id = $1
		ORDER BY created_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status Status) ([]*Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1
		ORDER BY created_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list payments by status: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, paymentID id.PaymentID, from, to Status, at time.Time) error {
	query := `
		UPDATE payments
		SET status = $1,
		    paid_at = CASE WHEN $1 = 'PAID' THEN $2 ELSE paid_at END,
		    voided_at = CASE WHEN $1 = 'VOIDED' THEN $2 ELSE voided_at END
		WHERE id = $3 AND status = $4
	`
	res, err := s.q(ctx).ExecContext(ctx, query, string(to), at, uuid.UUID(paymentID), string(from))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, paymentID)
		if getErr != nil {
			return getErr
		}
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"payment %s changed concurrently: expected %s, found %s", paymentID, from, current.Status)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	var paymentID, applicationID uuid.UUID
	var orderID sql.NullString
	var paidAt, voidedAt sql.NullTime
	err := row.Scan(&paymentID, &applicationID, (*string)(&p.Method), (*string)(&p.Status),
		&orderID, &p.Amount, &p.CreatedAt, &paidAt, &voidedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	p.ID = id.PaymentID(paymentID)
	p.ApplicationID = id.ApplicationID(applicationID)
	p.OrderID = orderID.String
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	if voidedAt.Valid {
		p.VoidedAt = &voidedAt.Time
	}
	return &p, nil
}

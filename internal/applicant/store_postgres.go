package applicant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// PostgresStore persists applicant profiles. Pure I/O; uniqueness is
// enforced by database constraints and surfaced as CodeConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const applicantColumns = `id, subject, national_id, full_name, email, phone, birth_date, created_at`

func (s *PostgresStore) Create(ctx context.Context, a *Applicant) error {
	query := `
		INSERT INTO applicants (` + applicantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Subject, a.NationalID, a.FullName, a.Email, a.Phone, a.BirthDate, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "national document number already registered")
		}
		return fmt.Errorf("create applicant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, applicantID id.ApplicantID) (*Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(applicantID)))
}

func (s *PostgresStore) GetBySubject(ctx context.Context, subject string) (*Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE subject = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, subject))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Applicant, error) {
	var a Applicant
	var applicantID uuid.UUID
	if err := row.Scan(&applicantID, &a.Subject, &a.NationalID, &a.FullName, &a.Email, &a.Phone, &a.BirthDate, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
		}
		return nil, fmt.Errorf("get applicant: %w", err)
	}
	a.ID = id.ApplicantID(applicantID)
	return &a, nil
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

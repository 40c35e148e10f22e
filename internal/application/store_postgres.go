package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	txcontext "admissio/pkg/platform/tx"
)

// PostgresStore persists applications. Sequence allocation and status
// transitions rely on single-statement atomicity so concurrent writers
// serialize at the database.
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

const applicationColumns = `id, call_id, applicant_id, preferences, status, number, sequence, final_score, created_at`

func (s *PostgresStore) Create(ctx context.Context, a *Application) error {
	prefs, err := json.Marshal(a.Preferences)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.CallID), uuid.UUID(a.ApplicantID),
		prefs, string(a.Status), a.Number, a.Sequence, a.FinalScore, a.CreatedAt,
	)
	if err != nil {
		// the applications_one_active partial index catches double-submits
		// that raced past the service's pre-check
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeDuplicateApplication,
				"applicant already holds an application for this call")
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NextSequence bumps the per-call counter and returns the new value. The
// upsert makes the first application of a call create the counter row.
func (s *PostgresStore) NextSequence(ctx context.Context, callID id.CallID) (int, error) {
	query := `
		INSERT INTO application_sequences (call_id, last_value)
		VALUES ($1, 1)
		ON CONFLICT (call_id) DO UPDATE SET last_value = application_sequences.last_value + 1
		RETURNING last_value
	`
	var seq int
	if err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(callID)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next application sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, applicationID id.ApplicationID) (*Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(applicationID)))
}

func (s *PostgresStore) GetActiveByApplicant(ctx context.Context, callID id.CallID, applicantID id.ApplicantID) (*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE call_id = $1 AND applicant_id = $2 AND status <> $3
	`
	return scanApplication(s.q(ctx).QueryRowContext(ctx, query,
		uuid.UUID(callID), uuid.UUID(applicantID), string(StatusRejected)))
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID id.ApplicantID) ([]*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at
	`
	return s.list(ctx, query, uuid.UUID(applicantID))
}

func (s *PostgresStore) ListByCall(ctx context.Context, callID id.CallID) ([]*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE call_id = $1
		ORDER BY sequence
	`
	return s.list(ctx, query, uuid.UUID(callID))
}

func (s *PostgresStore) ListByCallAndStatus(ctx context.Context, callID id.CallID, status Status) ([]*Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE call_id = $1 AND status = $2
		ORDER BY sequence
	`
	return s.list(ctx, query, uuid.UUID(callID), string(status))
}

// UpdateStatus is a conditional single-row update: the WHERE clause pins
// the expected status, so a lost race shows up as zero affected rows.
func (s *PostgresStore) UpdateStatus(ctx context.Context, applicationID id.ApplicationID, from, to Status, finalScore *float64) error {
	query := `
		UPDATE applications
		SET status = $1, final_score = COALESCE($2, final_score)
		WHERE id = $3 AND status = $4
	`
	res, err := s.q(ctx).ExecContext(ctx, query, string(to), finalScore, uuid.UUID(applicationID), string(from))
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, applicationID)
		if getErr != nil {
			return getErr
		}
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"application %s changed concurrently: expected %s, found %s", current.Number, from, current.Status)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Application, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var a Application
	var appID, callID, applicantID uuid.UUID
	var prefsRaw []byte
	var score sql.NullFloat64
	err := row.Scan(&appID, &callID, &applicantID, &prefsRaw, (*string)(&a.Status), &a.Number, &a.Sequence, &score, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	a.ID = id.ApplicationID(appID)
	a.CallID = id.CallID(callID)
	a.ApplicantID = id.ApplicantID(applicantID)
	if err := json.Unmarshal(prefsRaw, &a.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	if score.Valid {
		a.FinalScore = &score.Float64
	}
	return &a, nil
}

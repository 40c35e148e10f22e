package evaluation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	txcontext "admissio/pkg/platform/tx"
)

// PostgresStore persists score records keyed by application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Upsert(ctx context.Context, score *Score) error {
	query := `
		INSERT INTO evaluation_scores (application_id, exam, cv, interview, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (application_id) DO UPDATE
		SET exam = $2, cv = $3, interview = $4, updated_at = $5
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(score.ApplicationID), score.Exam, score.CV, score.Interview, score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert evaluation scores: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByApplication(ctx context.Context, applicationID id.ApplicationID) (*Score, error) {
	query := `
		SELECT application_id, exam, cv, interview, updated_at
		FROM evaluation_scores
		WHERE application_id = $1
	`
	var score Score
	var appID uuid.UUID
	err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(applicationID)).
		Scan(&appID, &score.Exam, &score.CV, &score.Interview, &score.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "no scores for application")
		}
		return nil, fmt.Errorf("get evaluation scores: %w", err)
	}
	score.ApplicationID = id.ApplicationID(appID)
	return &score, nil
}

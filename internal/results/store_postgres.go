package results

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

// PostgresStore persists publication snapshots. Entries are stored as a
// JSON document; they are only ever read and written whole.
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

func (s *PostgresStore) Get(ctx context.Context, callID id.CallID, careerID id.CareerID) (*Publication, error) {
	query := `
		SELECT call_id, career_id, vacancies, entries, published_at, closed_at
		FROM result_publications
		WHERE call_id = $1 AND career_id = $2
	`
	return scanPublication(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(callID), uuid.UUID(careerID)))
}

func (s *PostgresStore) Save(ctx context.Context, p *Publication) error {
	entries, err := json.Marshal(p.Entries)
	if err != nil {
		return fmt.Errorf("marshal publication entries: %w", err)
	}
	query := `
		INSERT INTO result_publications (call_id, career_id, vacancies, entries, published_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(p.CallID), uuid.UUID(p.CareerID), p.Vacancies, entries, p.PublishedAt, p.ClosedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return dErrors.New(dErrors.CodeConflict, "results already published")
		}
		return fmt.Errorf("save publication: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Publication) error {
	entries, err := json.Marshal(p.Entries)
	if err != nil {
		return fmt.Errorf("marshal publication entries: %w", err)
	}
	query := `
		UPDATE result_publications
		SET vacancies = $1, entries = $2, closed_at = $3
		WHERE call_id = $4 AND career_id = $5
	`
	res, err := s.q(ctx).ExecContext(ctx, query,
		p.Vacancies, entries, p.ClosedAt, uuid.UUID(p.CallID), uuid.UUID(p.CareerID),
	)
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update publication: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "results not published")
	}
	return nil
}

func (s *PostgresStore) ListByCall(ctx context.Context, callID id.CallID) ([]*Publication, error) {
	query := `
		SELECT call_id, career_id, vacancies, entries, published_at, closed_at
		FROM result_publications
		WHERE call_id = $1
		ORDER BY career_id
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, uuid.UUID(callID))
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	var out []*Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row rowScanner) (*Publication, error) {
	var p Publication
	var callID, careerID uuid.UUID
	var entries []byte
	var closedAt sql.NullTime
	err := row.Scan(&callID, &careerID, &p.Vacancies, &entries, &p.PublishedAt, &closedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "results not published")
		}
		return nil, fmt.Errorf("scan publication: %w", err)
	}
	p.CallID = id.CallID(callID)
	p.CareerID = id.CareerID(careerID)
	if err := json.Unmarshal(entries, &p.Entries); err != nil {
		return nil, fmt.Errorf("decode publication entries: %w", err)
	}
	if closedAt.Valid {
		p.ClosedAt = &closedAt.Time
	}
	return &p, nil
}

package document

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

// PostgresStore persists document slots. The one-slot-per-type rule is a
// unique index on (application_id, document_type).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `id, application_id, document_type, storage_url, review_status, observations, reviewer_id, reviewed_at, uploaded_at`

func (s *PostgresStore) Create(ctx context.Context, d *Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.ApplicationID), string(d.Type), d.StorageURL,
		string(d.ReviewStatus), d.Observations, d.ReviewerID, d.ReviewedAt, d.UploadedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return dErrors.Newf(dErrors.CodeConflict, "document slot %s already exists", d.Type)
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, documentID id.DocumentID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, uuid.UUID(documentID)))
}

func (s *PostgresStore) GetByApplicationAndType(ctx context.Context, applicationID id.ApplicationID, docType id.DocumentType) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE application_id = $1 AND document_type = $2`
	return scanDocument(s.db.QueryRowContext(ctx, query, uuid.UUID(applicationID), string(docType)))
}

func (s *PostgresStore) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]*Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE application_id = $1
		ORDER BY document_type
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, d *Document) error {
	query := `
		UPDATE documents
		SET storage_url = $1, review_status = $2, observations = $3,
		    reviewer_id = $4, reviewed_at = $5, uploaded_at = $6
		WHERE id = $7
	`
	res, err := s.db.ExecContext(ctx, query,
		d.StorageURL, string(d.ReviewStatus), d.Observations, d.ReviewerID, d.ReviewedAt, d.UploadedAt,
		uuid.UUID(d.ID),
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var documentID, applicationID uuid.UUID
	var observations, reviewerID sql.NullString
	var reviewedAt sql.NullTime
	err := row.Scan(&documentID, &applicationID, (*string)(&d.Type), &d.StorageURL,
		(*string)(&d.ReviewStatus), &observations, &reviewerID, &reviewedAt, &d.UploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.ID = id.DocumentID(documentID)
	d.ApplicationID = id.ApplicationID(applicationID)
	d.Observations = observations.String
	d.ReviewerID = reviewerID.String
	if reviewedAt.Valid {
		d.ReviewedAt = &reviewedAt.Time
	}
	return &d, nil
}

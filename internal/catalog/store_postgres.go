package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// PostgresStore reads the catalog tables maintained by the administrative
// system. Pure I/O; call invariants are validated on load.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const callColumns = `
	id, code, name, academic_year, academic_period,
	registration_start, registration_end, exam_date, results_date,
	application_fee, max_preferences, minimum_age, maximum_age,
	required_documents, status
`

func (s *PostgresStore) GetCall(ctx context.Context, callID id.CallID) (*AdmissionCall, error) {
	query := `SELECT ` + callColumns + ` FROM admission_calls WHERE id = $1`
	call, err := scanCall(s.db.QueryRowContext(ctx, query, uuid.UUID(callID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dErrors.New(dErrors.CodeNotFound, "admission call not found")
		}
		return nil, fmt.Errorf("get admission call: %w", err)
	}
	if err := s.loadOffers(ctx, call); err != nil {
		return nil, err
	}
	if err := call.Validate(); err != nil {
		return nil, err
	}
	return call, nil
}

func (s *PostgresStore) ListCalls(ctx context.Context) ([]*AdmissionCall, error) {
	query := `SELECT ` + callColumns + ` FROM admission_calls ORDER BY code`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list admission calls: %w", err)
	}
	defer rows.Close()

	var calls []*AdmissionCall
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan admission call: %w", err)
		}
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, call := range calls {
		if err := s.loadOffers(ctx, call); err != nil {
			return nil, err
		}
	}
	return calls, nil
}

func (s *PostgresStore) loadOffers(ctx context.Context, call *AdmissionCall) error {
	query := `
		SELECT o.career_id, c.code, c.name, o.vacancies
		FROM call_career_offers o
		JOIN careers c ON c.id = o.career_id
		WHERE o.call_id = $1
		ORDER BY c.code
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(call.ID))
	if err != nil {
		return fmt.Errorf("load career offers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var offer CareerOffer
		var careerID uuid.UUID
		if err := rows.Scan(&careerID, &offer.Code, &offer.Name, &offer.Vacancies); err != nil {
			return fmt.Errorf("scan career offer: %w", err)
		}
		offer.CareerID = id.CareerID(careerID)
		call.Careers = append(call.Careers, offer)
	}
	return rows.Err()
}

type callRow interface {
	Scan(dest ...any) error
}

func scanCall(row callRow) (*AdmissionCall, error) {
	var call AdmissionCall
	var callID uuid.UUID
	var minAge, maxAge sql.NullInt64
	var requiredDocs []byte
	var status string
	if err := row.Scan(
		&callID, &call.Code, &call.Name, &call.AcademicYear, &call.AcademicPeriod,
		&call.RegistrationStart, &call.RegistrationEnd, &call.ExamDate, &call.ResultsDate,
		&call.ApplicationFee, &call.MaxPreferences, &minAge, &maxAge,
		&requiredDocs, &status,
	); err != nil {
		return nil, err
	}
	call.ID = id.CallID(callID)
	call.Status = CallStatus(status)
	if minAge.Valid {
		v := int(minAge.Int64)
		call.MinimumAge = &v
	}
	if maxAge.Valid {
		v := int(maxAge.Int64)
		call.MaximumAge = &v
	}
	if len(requiredDocs) > 0 {
		if err := json.Unmarshal(requiredDocs, &call.RequiredDocuments); err != nil {
			return nil, fmt.Errorf("decode required documents: %w", err)
		}
	}
	return &call, nil
}

// PostgresParamsStore persists the single global Params record as JSON.
type PostgresParamsStore struct {
	db *sql.DB
}

func NewPostgresParamsStore(db *sql.DB) *PostgresParamsStore {
	return &PostgresParamsStore{db: db}
}

func (s *PostgresParamsStore) Get(ctx context.Context) (*Params, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM admission_params WHERE singleton = TRUE`).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return &Params{}, nil
		}
		return nil, fmt.Errorf("get admission params: %w", err)
	}
	var params Params
	if err := json.Unmarshal(body, &params); err != nil {
		return nil, fmt.Errorf("decode admission params: %w", err)
	}
	return &params, nil
}

func (s *PostgresParamsStore) Save(ctx context.Context, params *Params) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode admission params: %w", err)
	}
	query := `
		INSERT INTO admission_params (singleton, data)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET data = EXCLUDED.data
	`
	if _, err := s.db.ExecContext(ctx, query, body); err != nil {
		return fmt.Errorf("save admission params: %w", err)
	}
	return nil
}

// Package postgres implements the audit store with a transactional outbox.
// Events land in admission_audit_outbox inside the caller's transaction
// (when one is in context) and are relayed to Kafka by the outbox worker.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"admissio/pkg/platform/audit"
	txcontext "admissio/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure relayed to Kafka. Field names match
// audit.Event so consumers can decode it directly.
type payload struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Action        string `json:"action"`
	ApplicationID string `json:"application_id,omitempty"`
	CallID        string `json:"call_id,omitempty"`
	CareerID      string `json:"career_id,omitempty"`
	Actor         string `json:"actor,omitempty"`
	Detail        string `json:"detail,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()
	body, err := json.Marshal(payload{
		ID:            eventID.String(),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:        string(event.Action),
		ApplicationID: event.ApplicationID,
		CallID:        event.CallID,
		CareerID:      event.CareerID,
		Actor:         event.Actor,
		Detail:        event.Detail,
		RequestID:     event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO admission_audit_outbox (id, action, application_id, payload, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		eventID, string(event.Action), nullString(event.ApplicationID), body, event.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit outbox: %w", err)
	}
	return nil
}

func (s *Store) ListByApplication(ctx context.Context, applicationID string) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM admission_audit_outbox
		WHERE application_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decodeEvent(body)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// OutboxEntry is one unpublished outbox row.
type OutboxEntry struct {
	ID      uuid.UUID
	Action  string
	Payload []byte
}

// FetchUnpublished returns up to limit unrelayed entries, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, action, payload
		FROM admission_audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished audit events: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkPublished stamps entries as relayed.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE admission_audit_outbox SET published_at = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, at, ids); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

func decodeEvent(body []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	return audit.Event{
		Timestamp:     ts,
		Action:        audit.Action(p.Action),
		ApplicationID: p.ApplicationID,
		CallID:        p.CallID,
		CareerID:      p.CareerID,
		Actor:         p.Actor,
		Detail:        p.Detail,
		RequestID:     p.RequestID,
	}, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

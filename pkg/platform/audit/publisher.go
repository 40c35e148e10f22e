package audit

import (
	"context"
	"log/slog"
	"time"

	"admissio/pkg/requestcontext"
)

// Publisher emits audit events to the store. Emit is best-effort for
// routine events: a failed append is logged but never fails the business
// operation. EmitStrict is for events with administrative significance
// (publication, closure, void anomalies) where losing the record is worse
// than failing the request.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.store == nil {
		return
	}
	p.prepare(ctx, &event)
	if err := p.store.Append(ctx, event); err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}

// EmitStrict returns the append error so the caller can fail its operation.
func (p *Publisher) EmitStrict(ctx context.Context, event Event) error {
	if p == nil || p.store == nil {
		return nil
	}
	p.prepare(ctx, &event)
	return p.store.Append(ctx, event)
}

func (p *Publisher) prepare(ctx context.Context, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Subject(ctx)
	}
}

package audit

import "context"

// Store is the audit persistence boundary. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, applicationID string) ([]Event, error)
}

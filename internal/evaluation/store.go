package evaluation

import (
	"context"

	id "admissio/pkg/domain"
)

// Store persists raw component scores, one record per application.
type Store interface {
	// Upsert creates or replaces the application's score record.
	Upsert(ctx context.Context, s *Score) error

	// GetByApplication returns the score record, or CodeNotFound when no
	// scores were entered yet.
	GetByApplication(ctx context.Context, applicationID id.ApplicationID) (*Score, error)
}

package results

import (
	"context"

	id "admissio/pkg/domain"
)

// Store persists publication snapshots, keyed by (call, career).
type Store interface {
	// Get returns the pair's publication, or CodeNotFound when the pair
	// was never published.
	Get(ctx context.Context, callID id.CallID, careerID id.CareerID) (*Publication, error)

	// Save inserts a new publication. CodeConflict when the pair is
	// already published.
	Save(ctx context.Context, p *Publication) error

	// Update overwrites an existing publication (closure writes the final
	// outcomes and the closed timestamp).
	Update(ctx context.Context, p *Publication) error

	// ListByCall returns every publication under a call.
	ListByCall(ctx context.Context, callID id.CallID) ([]*Publication, error)
}

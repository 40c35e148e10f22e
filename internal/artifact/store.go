package artifact

import (
	"context"

	id "admissio/pkg/domain"
)

// Store holds rendering jobs. Jobs are operational state, not admission
// facts, so only an in-memory implementation exists.
type Store interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID id.JobID) (*Job, error)
	Update(ctx context.Context, job *Job) error
}

// Package artifact is the async job handle over the external rendering
// collaborator. Callers submit a document spec and receive a job id; the
// rendered artifact is fetched later by polling the job.
package artifact

import (
	"time"

	id "admissio/pkg/domain"
)

// JobStatus is the rendering state of a submitted job.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusReady   JobStatus = "READY"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one rendering request and its outcome.
type Job struct {
	ID          id.JobID   `json:"id"`
	Kind        string     `json:"kind"`
	Status      JobStatus  `json:"status"`
	ArtifactURL string     `json:"artifact_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

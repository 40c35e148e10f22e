package artifact

import (
	"context"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps rendering jobs in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.JobID]*Job
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.JobID]*Job)}
}

func (s *InMemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[job.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "job already exists")
	}
	s.byID[job.ID] = copyJob(job)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, jobID id.JobID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.byID[jobID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "job not found")
	}
	return copyJob(job), nil
}

func (s *InMemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[job.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "job not found")
	}
	s.byID[job.ID] = copyJob(job)
	return nil
}

func copyJob(job *Job) *Job {
	cp := *job
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

package evaluation

import (
	"context"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps score records in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	byApplication map[id.ApplicationID]*Score
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byApplication: make(map[id.ApplicationID]*Score)}
}

func (s *InMemoryStore) Upsert(_ context.Context, score *Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *score
	s.byApplication[score.ApplicationID] = &cp
	return nil
}

func (s *InMemoryStore) GetByApplication(_ context.Context, applicationID id.ApplicationID) (*Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.byApplication[applicationID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no scores for application")
	}
	cp := *score
	return &cp, nil
}

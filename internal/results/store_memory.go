package results

import (
	"context"
	"sort"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

type pairKey struct {
	callID   id.CallID
	careerID id.CareerID
}

// InMemoryStore keeps publication snapshots in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	byPair map[pairKey]*Publication
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byPair: make(map[pairKey]*Publication)}
}

func (s *InMemoryStore) Get(_ context.Context, callID id.CallID, careerID id.CareerID) (*Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byPair[pairKey{callID, careerID}]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "results not published")
	}
	return copyPublication(p), nil
}

func (s *InMemoryStore) Save(_ context.Context, p *Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{p.CallID, p.CareerID}
	if _, ok := s.byPair[key]; ok {
		return dErrors.New(dErrors.CodeConflict, "results already published")
	}
	s.byPair[key] = copyPublication(p)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{p.CallID, p.CareerID}
	if _, ok := s.byPair[key]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "results not published")
	}
	s.byPair[key] = copyPublication(p)
	return nil
}

func (s *InMemoryStore) ListByCall(_ context.Context, callID id.CallID) ([]*Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Publication
	for key, p := range s.byPair {
		if key.callID == callID {
			out = append(out, copyPublication(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CareerID.String() < out[j].CareerID.String() })
	return out, nil
}

func copyPublication(p *Publication) *Publication {
	cp := *p
	cp.Entries = append([]Entry(nil), p.Entries...)
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		cp.ClosedAt = &t
	}
	return &cp
}

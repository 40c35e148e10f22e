package catalog

import (
	"context"
	"sort"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore holds the catalog in memory. Production deployments load
// it from postgres; tests and development seed it directly.
type InMemoryStore struct {
	mu    sync.RWMutex
	calls map[id.CallID]*AdmissionCall
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{calls: make(map[id.CallID]*AdmissionCall)}
}

// Seed registers a call, validating its invariants first.
func (s *InMemoryStore) Seed(call *AdmissionCall) error {
	if err := call.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *call
	s.calls[call.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetCall(_ context.Context, callID id.CallID) (*AdmissionCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	call, ok := s.calls[callID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "admission call not found")
	}
	cp := *call
	return &cp, nil
}

func (s *InMemoryStore) ListCalls(_ context.Context) ([]*AdmissionCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*AdmissionCall, 0, len(s.calls))
	for _, call := range s.calls {
		cp := *call
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// InMemoryParamsStore holds the global params record in memory.
type InMemoryParamsStore struct {
	mu     sync.RWMutex
	params Params
}

func NewInMemoryParamsStore() *InMemoryParamsStore {
	return &InMemoryParamsStore{}
}

func (s *InMemoryParamsStore) Get(_ context.Context) (*Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.params
	return &cp, nil
}

func (s *InMemoryParamsStore) Save(_ context.Context, params *Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = *params
	return nil
}

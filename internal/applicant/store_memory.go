package applicant

import (
	"context"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps applicant profiles in memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	byID       map[id.ApplicantID]*Applicant
	byNational map[string]id.ApplicantID
	bySubject  map[string]id.ApplicantID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:       make(map[id.ApplicantID]*Applicant),
		byNational: make(map[string]id.ApplicantID),
		bySubject:  make(map[string]id.ApplicantID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *Applicant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byNational[a.NationalID]; exists {
		return dErrors.New(dErrors.CodeConflict, "national document number already registered")
	}
	if _, exists := s.bySubject[a.Subject]; exists {
		return dErrors.New(dErrors.CodeConflict, "applicant profile already exists")
	}
	cp := *a
	s.byID[a.ID] = &cp
	s.byNational[a.NationalID] = a.ID
	s.bySubject[a.Subject] = a.ID
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, applicantID id.ApplicantID) (*Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[applicantID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryStore) GetBySubject(_ context.Context, subject string) (*Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	applicantID, ok := s.bySubject[subject]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "applicant profile not found")
	}
	cp := *s.byID[applicantID]
	return &cp, nil
}

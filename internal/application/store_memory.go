package application

import (
	"context"
	"sort"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps applications in process memory. Used by tests and as
// the default backing store when no database is configured.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.ApplicationID]*Application
	sequences map[id.CallID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.ApplicationID]*Application),
		sequences: make(map[id.CallID]int),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	}
	for _, existing := range s.byID {
		if existing.CallID == a.CallID && existing.ApplicantID == a.ApplicantID && existing.Status != StatusRejected {
			return dErrors.New(dErrors.CodeDuplicateApplication,
				"applicant already holds an application for this call")
		}
	}
	s.byID[a.ID] = copyApplication(a)
	return nil
}

func (s *InMemoryStore) NextSequence(_ context.Context, callID id.CallID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[callID]++
	return s.sequences[callID], nil
}

func (s *InMemoryStore) GetByID(_ context.Context, applicationID id.ApplicationID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[applicationID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return copyApplication(a), nil
}

func (s *InMemoryStore) GetActiveByApplicant(_ context.Context, callID id.CallID, applicantID id.ApplicantID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if a.CallID == callID && a.ApplicantID == applicantID && a.Status != StatusRejected {
			return copyApplication(a), nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID id.ApplicantID) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *Application) bool { return a.ApplicantID == applicantID }), nil
}

func (s *InMemoryStore) ListByCall(_ context.Context, callID id.CallID) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *Application) bool { return a.CallID == callID }), nil
}

func (s *InMemoryStore) ListByCallAndStatus(_ context.Context, callID id.CallID, status Status) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *Application) bool { return a.CallID == callID && a.Status == status }), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, applicationID id.ApplicationID, from, to Status, finalScore *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[applicationID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if a.Status != from {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"application %s changed concurrently: expected %s, found %s", a.Number, from, a.Status)
	}
	a.Status = to
	if finalScore != nil {
		score := *finalScore
		a.FinalScore = &score
	}
	return nil
}

// collect must be called with the lock held. Results are ordered by
// per-call sequence so listings are deterministic.
func (s *InMemoryStore) collect(match func(*Application) bool) []*Application {
	var out []*Application
	for _, a := range s.byID {
		if match(a) {
			out = append(out, copyApplication(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CallID != out[j].CallID {
			return out[i].CallID.String() < out[j].CallID.String()
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func copyApplication(a *Application) *Application {
	cp := *a
	cp.Preferences = append([]id.CareerID(nil), a.Preferences...)
	if a.FinalScore != nil {
		score := *a.FinalScore
		cp.FinalScore = &score
	}
	return &cp
}

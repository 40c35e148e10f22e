package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps payments in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.PaymentID]*Payment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.PaymentID]*Payment)}
}

func (s *InMemoryStore) Create(_ context.Context, p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "payment already exists")
	}
	s.byID[p.ID] = copyPayment(p)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, paymentID id.PaymentID) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[paymentID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	return copyPayment(p), nil
}

func (s *InMemoryStore) GetPendingByApplication(_ context.Context, applicationID id.ApplicationID) (*Payment, error) {
	return s.findByStatus(applicationID, StatusPending)
}

func (s *InMemoryStore) GetPaidByApplication(_ context.Context, applicationID id.ApplicationID) (*Payment, error) {
	return s.findByStatus(applicationID, StatusPaid)
}

func (s *InMemoryStore) findByStatus(applicationID id.ApplicationID, status Status) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.byID {
		if p.ApplicationID == applicationID && p.Status == status {
			return copyPayment(p), nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
}

func (s *InMemoryStore) ListByApplication(_ context.Context, applicationID id.ApplicationID) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Payment
	for _, p := range s.byID {
		if p.ApplicationID == applicationID {
			out = append(out, copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status Status) ([]*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Payment
	for _, p := range s.byID {
		if p.Status == status {
			out = append(out, copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, paymentID id.PaymentID, from, to Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[paymentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	if p.Status != from {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"payment %s changed concurrently: expected %s, found %s", paymentID, from, p.Status)
	}
	p.Status = to
	stamp := at
	switch to {
	case StatusPaid:
		p.PaidAt = &stamp
	case StatusVoided:
		p.VoidedAt = &stamp
	}
	return nil
}

func copyPayment(p *Payment) *Payment {
	cp := *p
	if p.PaidAt != nil {
		t := *p.PaidAt
		cp.PaidAt = &t
	}
	if p.VoidedAt != nil {
		t := *p.VoidedAt
		cp.VoidedAt = &t
	}
	return &cp
}

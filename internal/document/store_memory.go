package document

import (
	"context"
	"sort"
	"sync"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// InMemoryStore keeps document slots in process memory.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.DocumentID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.DocumentID]*Document)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.ApplicationID == d.ApplicationID && existing.Type == d.Type {
			return dErrors.Newf(dErrors.CodeConflict, "document slot %s already exists", d.Type)
		}
	}
	s.byID[d.ID] = copyDocument(d)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, documentID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[documentID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return copyDocument(d), nil
}

func (s *InMemoryStore) GetByApplicationAndType(_ context.Context, applicationID id.ApplicationID, docType id.DocumentType) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.byID {
		if d.ApplicationID == applicationID && d.Type == docType {
			return copyDocument(d), nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
}

func (s *InMemoryStore) ListByApplication(_ context.Context, applicationID id.ApplicationID) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, d := range s.byID {
		if d.ApplicationID == applicationID {
			out = append(out, copyDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[d.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	s.byID[d.ID] = copyDocument(d)
	return nil
}

func copyDocument(d *Document) *Document {
	cp := *d
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}

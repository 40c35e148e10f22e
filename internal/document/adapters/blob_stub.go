package adapters

import (
	"context"
	"fmt"
	"sync"

	"admissio/internal/document/ports"
)

// StubBlobStore is a local BlobPort for development and tests. Content is
// held in memory and addressed by fabricated URLs.
type StubBlobStore struct {
	mu      sync.RWMutex
	BaseURL string
	blobs   map[string][]byte
}

func NewStubBlobStore() *StubBlobStore {
	return &StubBlobStore{
		BaseURL: "https://files.invalid",
		blobs:   make(map[string][]byte),
	}
}

func (s *StubBlobStore) Put(_ context.Context, key, _ string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), content...)
	return fmt.Sprintf("%s/%s", s.BaseURL, key), nil
}

// Get returns stored content, for test assertions.
func (s *StubBlobStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	return b, ok
}

var _ ports.BlobPort = (*StubBlobStore)(nil)

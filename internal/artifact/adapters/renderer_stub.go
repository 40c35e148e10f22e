// Package adapters provides local stand-ins for the rendering service,
// used in tests and when no renderer is configured.
package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"admissio/internal/artifact/ports"
)

// StubRenderer fabricates artifact URLs without producing documents.
type StubRenderer struct {
	mu       sync.Mutex
	rendered []string
}

var _ ports.RendererPort = (*StubRenderer)(nil)

func NewStubRenderer() *StubRenderer {
	return &StubRenderer{}
}

func (r *StubRenderer) Render(_ context.Context, kind string, _ any) (string, error) {
	url := fmt.Sprintf("https://artifacts.local/%s/%s.pdf", kind, uuid.NewString())
	r.mu.Lock()
	r.rendered = append(r.rendered, url)
	r.mu.Unlock()
	return url, nil
}

// Rendered returns the URLs fabricated so far, oldest first.
func (r *StubRenderer) Rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rendered...)
}

// Package ports defines the rendering boundary. The real renderer is an
// external document service; the core only ever submits and receives a
// URL back.
package ports

import "context"

// RendererPort turns a document payload into a fetchable artifact.
type RendererPort interface {
	Render(ctx context.Context, kind string, payload any) (artifactURL string, err error)
}

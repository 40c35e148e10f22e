package ports

import "context"

// BlobPort defines the interface to the external file storage the intake
// uses. The engine only stores and hands out URLs; fetching and serving
// content is the storage collaborator's business.
type BlobPort interface {
	// Put stores content under key and returns its fetch URL.
	Put(ctx context.Context, key, contentType string, content []byte) (string, error)
}

package document

import (
	"context"

	id "admissio/pkg/domain"
)

// Store persists document slots. One row per (application, type); the
// service serializes writers per application, so no compare-and-swap is
// needed here.
type Store interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, documentID id.DocumentID) (*Document, error)

	// GetByApplicationAndType returns the slot for a document type, or
	// CodeNotFound when nothing was uploaded yet.
	GetByApplicationAndType(ctx context.Context, applicationID id.ApplicationID, docType id.DocumentType) (*Document, error)

	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]*Document, error)

	// Update overwrites the slot's mutable fields (content and review).
	Update(ctx context.Context, d *Document) error
}

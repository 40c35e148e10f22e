package document

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/document/metrics"
	"admissio/internal/document/ports"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	"admissio/pkg/requestcontext"
)

// Lifecycle is the slice of the application service the engine drives.
type Lifecycle interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
	MarkDocsComplete(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
}

// CatalogReader resolves the required document set for a call.
type CatalogReader interface {
	GetCall(ctx context.Context, callID id.CallID) (*catalog.AdmissionCall, error)
}

// ParamsReader supplies the default required documents for calls that set
// none of their own.
type ParamsReader interface {
	Get(ctx context.Context) (*catalog.Params, error)
}

// Service is the document review engine. Uploads and reviews for one
// application are serialized so the completion check never runs against a
// half-applied review.
type Service struct {
	store     Store
	lifecycle Lifecycle
	calls     CatalogReader
	params    ParamsReader
	blobs     ports.BlobPort
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	locksMu sync.Mutex
	locks   map[id.ApplicationID]*sync.Mutex
}

func NewService(store Store, lifecycle Lifecycle, calls CatalogReader, params ParamsReader, blobs ports.BlobPort, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		lifecycle: lifecycle,
		calls:     calls,
		params:    params,
		blobs:     blobs,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
		locks:     make(map[id.ApplicationID]*sync.Mutex),
	}
}

func (s *Service) lock(applicationID id.ApplicationID) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[applicationID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[applicationID] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// UploadParams carries one document upload.
type UploadParams struct {
	ApplicationID id.ApplicationID
	Type          id.DocumentType
	ContentType   string
	Content       []byte
}

// Upload stores a document for a required type. Uploading a type again
// replaces the content and resets its review to UPLOADED. Only
// DOCS_PENDING applications accept uploads.
func (s *Service) Upload(ctx context.Context, p UploadParams) (*Document, error) {
	if len(p.Content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document content is required")
	}
	unlock := s.lock(p.ApplicationID)
	defer unlock()

	a, err := s.lifecycle.Get(ctx, p.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != application.StatusDocsPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"application %s: expected %s, got %s", a.Number, application.StatusDocsPending, a.Status)
	}
	required, err := s.requiredTypes(ctx, a.CallID)
	if err != nil {
		return nil, err
	}
	if !containsType(required, p.Type) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "document type %s is not required by this call", p.Type)
	}

	key := fmt.Sprintf("%s/%s", a.ID, p.Type)
	url, err := s.blobs.Put(ctx, key, p.ContentType, p.Content)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "file storage unavailable")
	}

	now := requestcontext.Now(ctx)
	d, err := s.store.GetByApplicationAndType(ctx, a.ID, p.Type)
	switch {
	case err == nil:
		d.ResetUpload(url, now)
		if err := s.store.Update(ctx, d); err != nil {
			return nil, err
		}
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		d = &Document{
			ID:            id.NewDocumentID(),
			ApplicationID: a.ID,
			Type:          p.Type,
			StorageURL:    url,
			ReviewStatus:  StatusUploaded,
			UploadedAt:    now,
		}
		if err := s.store.Create(ctx, d); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionDocumentUploaded,
		ApplicationID: a.ID.String(),
		CallID:        a.CallID.String(),
		Detail:        string(p.Type),
	})
	s.metrics.IncrementUploaded(string(p.Type))
	s.logger.InfoContext(ctx, "document uploaded",
		"request_id", requestcontext.RequestID(ctx),
		"application_id", a.ID,
		"document_type", p.Type,
	)
	return d, nil
}

// Review records a verdict on a document and, on approval, runs the
// completion check. Reviews are only accepted while the application is in
// DOCS_PENDING. A document addressed through the wrong application is
// treated as absent.
func (s *Service) Review(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID, outcome ReviewStatus, observations string) (*Document, error) {
	reviewer := requestcontext.Subject(ctx)
	if reviewer == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	d, err := s.store.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.ApplicationID != applicationID {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	unlock := s.lock(d.ApplicationID)
	defer unlock()

	// re-read under the lock so a concurrent re-upload is not overwritten
	d, err = s.store.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	a, err := s.lifecycle.Get(ctx, d.ApplicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != application.StatusDocsPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"application %s: expected %s, got %s", a.Number, application.StatusDocsPending, a.Status)
	}

	if err := d.ApplyReview(outcome, observations, reviewer, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}

	s.audit.Emit(ctx, audit.Event{
		Action:        audit.ActionDocumentReviewed,
		ApplicationID: a.ID.String(),
		CallID:        a.CallID.String(),
		Detail:        fmt.Sprintf("%s:%s", d.Type, outcome),
	})
	s.metrics.IncrementReviewed(string(outcome))

	if outcome == StatusApproved {
		complete, err := s.isComplete(ctx, a)
		if err != nil {
			return nil, err
		}
		if complete {
			if _, err := s.lifecycle.MarkDocsComplete(ctx, a.ID); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// List returns the application's document slots together with the
// completion verdict.
func (s *Service) List(ctx context.Context, applicationID id.ApplicationID) ([]*Document, bool, error) {
	a, err := s.lifecycle.Get(ctx, applicationID)
	if err != nil {
		return nil, false, err
	}
	docs, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, false, err
	}
	complete, err := s.isComplete(ctx, a)
	if err != nil {
		return nil, false, err
	}
	return docs, complete, nil
}

// isComplete reports whether every required document type has exactly one
// APPROVED document.
func (s *Service) isComplete(ctx context.Context, a *application.Application) (bool, error) {
	required, err := s.requiredTypes(ctx, a.CallID)
	if err != nil {
		return false, err
	}
	if len(required) == 0 {
		return false, nil
	}
	docs, err := s.store.ListByApplication(ctx, a.ID)
	if err != nil {
		return false, err
	}
	approved := make(map[id.DocumentType]int)
	for _, d := range docs {
		if d.ReviewStatus == StatusApproved {
			approved[d.Type]++
		}
	}
	for _, t := range required {
		if approved[t] != 1 {
			return false, nil
		}
	}
	return true, nil
}

// requiredTypes resolves the call's required documents, falling back to
// the global defaults when the call sets none.
func (s *Service) requiredTypes(ctx context.Context, callID id.CallID) ([]id.DocumentType, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if len(call.RequiredDocuments) > 0 {
		return call.RequiredDocuments, nil
	}
	params, err := s.params.Get(ctx)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return params.RequiredDocuments, nil
}

func containsType(set []id.DocumentType, t id.DocumentType) bool {
	for _, member := range set {
		if member == t {
			return true
		}
	}
	return false
}

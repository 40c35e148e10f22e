package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"admissio/internal/document"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the document operations the handler needs.
type Service interface {
	Upload(ctx context.Context, p document.UploadParams) (*document.Document, error)
	Review(ctx context.Context, applicationID id.ApplicationID, documentID id.DocumentID, outcome document.ReviewStatus, observations string) (*document.Document, error)
	List(ctx context.Context, applicationID id.ApplicationID) ([]*document.Document, bool, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/applications/{applicationID}/documents", h.HandleList)
	r.Post("/applications/{applicationID}/documents", h.HandleUpload)
	r.Post("/applications/{applicationID}/documents/{documentID}/review", h.HandleReview)
}

// UploadRequest is the body for POST /applications/{id}/documents.
// Content is base64 in transit; the stored blob is the decoded bytes.
type UploadRequest struct {
	DocumentType string `json:"document_type"`
	ContentType  string `json:"content_type"`
	Content      []byte `json:"content"`

	parsedType id.DocumentType
}

func (r *UploadRequest) Validate() error {
	docType, err := id.ParseDocumentType(r.DocumentType)
	if err != nil {
		return err
	}
	r.parsedType = docType
	if len(r.Content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	if r.ContentType == "" {
		r.ContentType = "application/octet-stream"
	}
	return nil
}

// ReviewRequest is the body for the review endpoint.
type ReviewRequest struct {
	Status       string `json:"status"`
	Observations string `json:"observations"`

	parsedOutcome document.ReviewStatus
}

func (r *ReviewRequest) Validate() error {
	outcome, err := document.ParseReviewOutcome(r.Status)
	if err != nil {
		return err
	}
	r.parsedOutcome = outcome
	r.Observations = strings.TrimSpace(r.Observations)
	if outcome == document.StatusObserved && r.Observations == "" {
		return dErrors.New(dErrors.CodeValidation, "observations are required for an OBSERVED verdict")
	}
	return nil
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UploadRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Upload(ctx, document.UploadParams{
		ApplicationID: applicationID,
		Type:          req.parsedType,
		ContentType:   req.ContentType,
		Content:       req.Content,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Review(ctx, applicationID, documentID, req.parsedOutcome, req.Observations)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, complete, err := h.service.List(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"complete":  complete,
	})
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/artifact"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the job operations the handler needs.
type Service interface {
	Submit(ctx context.Context, kind string, payload any) (id.JobID, error)
	Poll(ctx context.Context, jobID id.JobID) (*artifact.Job, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts artifact endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/artifacts", h.HandleSubmit)
	r.Get("/artifacts/{jobID}", h.HandlePoll)
}

// SubmitRequest is the body for POST /artifacts. Payload is passed to
// the renderer untouched.
type SubmitRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (r *SubmitRequest) Validate() error {
	if r.Kind == "" {
		return dErrors.New(dErrors.CodeValidation, "kind is required")
	}
	return nil
}

// SubmitResponse carries the job handle to poll.
type SubmitResponse struct {
	JobID id.JobID `json:"job_id"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	jobID, err := h.service.Submit(ctx, req.Kind, req.Payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, SubmitResponse{JobID: jobID})
}

func (h *Handler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	job, err := h.service.Poll(r.Context(), jobID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

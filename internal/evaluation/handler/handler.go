package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/evaluation"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the evaluation operations the handler needs.
type Service interface {
	SetScores(ctx context.Context, applicationID id.ApplicationID, exam, cv, interview float64) (*evaluation.Score, error)
	GetScores(ctx context.Context, applicationID id.ApplicationID) (*evaluation.Score, error)
	ComputeFinal(ctx context.Context, callID id.CallID, weights evaluation.Weights) (*evaluation.BatchReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evaluation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evaluation/{applicationID}/scores", h.HandleSetScores)
	r.Get("/evaluation/{applicationID}/scores", h.HandleGetScores)
	r.Post("/evaluation/compute", h.HandleCompute)
}

// ScoresRequest is the body for POST /evaluation/{id}/scores. Pointers
// distinguish an omitted component from an explicit zero.
type ScoresRequest struct {
	Exam      *float64 `json:"exam"`
	CV        *float64 `json:"cv"`
	Interview *float64 `json:"interview"`
}

func (r *ScoresRequest) Validate() error {
	if r.Exam == nil || r.CV == nil || r.Interview == nil {
		return dErrors.New(dErrors.CodeValidation, "exam, cv and interview scores are required")
	}
	if *r.Exam < 0 || *r.CV < 0 || *r.Interview < 0 {
		return dErrors.New(dErrors.CodeValidation, "component scores must not be negative")
	}
	return nil
}

// ComputeRequest is the body for POST /evaluation/compute.
type ComputeRequest struct {
	CallID  string             `json:"call_id"`
	Weights evaluation.Weights `json:"weights"`

	parsedCallID id.CallID
}

func (r *ComputeRequest) Validate() error {
	callID, err := id.ParseCallID(r.CallID)
	if err != nil {
		return err
	}
	r.parsedCallID = callID
	return r.Weights.Validate()
}

func (h *Handler) HandleSetScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScoresRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	score, err := h.service.SetScores(ctx, applicationID, *req.Exam, *req.CV, *req.Interview)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	score, err := h.service.GetScores(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ComputeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	report, err := h.service.ComputeFinal(ctx, req.parsedCallID, req.Weights)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

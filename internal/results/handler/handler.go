package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/results"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the allocator operations the handler needs.
type Service interface {
	Results(ctx context.Context, callID id.CallID, careerID id.CareerID) (*results.Publication, bool, error)
	Publish(ctx context.Context, callID id.CallID, careerID id.CareerID) (*results.Publication, error)
	Close(ctx context.Context, callID id.CallID, careerID id.CareerID) (*results.Publication, error)
	Acta(ctx context.Context, callID id.CallID, careerID id.CareerID) (id.JobID, error)
	Summary(ctx context.Context) (*results.Dashboard, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the results listing, served without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/results", h.HandleGet)
}

// Register mounts the administrative results endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/results/publish", h.HandlePublish)
	r.Post("/results/close", h.HandleClose)
	r.Get("/results/acta.pdf", h.HandleActa)
	r.Get("/admission/dashboard", h.HandleDashboard)
}

// PairRequest is the body for POST /results/publish and /results/close.
type PairRequest struct {
	CallID   string `json:"call_id"`
	CareerID string `json:"career_id"`

	parsedCallID   id.CallID
	parsedCareerID id.CareerID
}

func (r *PairRequest) Validate() error {
	callID, err := id.ParseCallID(r.CallID)
	if err != nil {
		return err
	}
	careerID, err := id.ParseCareerID(r.CareerID)
	if err != nil {
		return err
	}
	r.parsedCallID = callID
	r.parsedCareerID = careerID
	return nil
}

// ResultsResponse wraps a publication with its published flag so callers
// can tell a snapshot from a live preview.
type ResultsResponse struct {
	Published bool                 `json:"published"`
	Results   *results.Publication `json:"results"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	callID, careerID, err := pairFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	publication, published, err := h.service.Results(r.Context(), callID, careerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResultsResponse{Published: published, Results: publication})
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Publish)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.CallID, id.CareerID) (*results.Publication, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PairRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	publication, err := op(ctx, req.parsedCallID, req.parsedCareerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, publication)
}

// ActaResponse carries the rendering job handle. Poll the artifact
// endpoint for the finished document.
type ActaResponse struct {
	JobID id.JobID `json:"job_id"`
}

func (h *Handler) HandleActa(w http.ResponseWriter, r *http.Request) {
	callID, careerID, err := pairFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	jobID, err := h.service.Acta(r.Context(), callID, careerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, ActaResponse{JobID: jobID})
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Summary(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dash)
}

func pairFromQuery(r *http.Request) (id.CallID, id.CareerID, error) {
	rawCall := r.URL.Query().Get("call_id")
	rawCareer := r.URL.Query().Get("career_id")
	if rawCall == "" || rawCareer == "" {
		return id.CallID{}, id.CareerID{}, dErrors.New(dErrors.CodeValidation, "call_id and career_id query parameters are required")
	}
	callID, err := id.ParseCallID(rawCall)
	if err != nil {
		return id.CallID{}, id.CareerID{}, err
	}
	careerID, err := id.ParseCareerID(rawCareer)
	if err != nil {
		return id.CallID{}, id.CareerID{}, err
	}
	return callID, careerID, nil
}

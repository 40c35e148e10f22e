package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/application"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler needs.
type Service interface {
	Create(ctx context.Context, p application.CreateParams) (*application.Application, error)
	Get(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
	ListMine(ctx context.Context) ([]*application.Application, error)
	ListByCall(ctx context.Context, callID id.CallID) ([]*application.Application, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts application endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.HandleCreate)
	r.Get("/applications", h.HandleList)
	r.Get("/applications/me", h.HandleListMine)
	r.Get("/applications/{applicationID}", h.HandleGet)
}

// CreateRequest is the body for POST /applications.
type CreateRequest struct {
	CallID      string   `json:"call_id"`
	Preferences []string `json:"career_preferences"`

	parsedCallID      id.CallID
	parsedPreferences []id.CareerID
}

func (r *CreateRequest) Validate() error {
	callID, err := id.ParseCallID(r.CallID)
	if err != nil {
		return err
	}
	r.parsedCallID = callID
	if len(r.Preferences) == 0 {
		return dErrors.New(dErrors.CodeValidation, "career_preferences is required")
	}
	r.parsedPreferences = make([]id.CareerID, len(r.Preferences))
	for i, raw := range r.Preferences {
		careerID, err := id.ParseCareerID(raw)
		if err != nil {
			return err
		}
		r.parsedPreferences[i] = careerID
	}
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Create(ctx, application.CreateParams{
		CallID:      req.parsedCallID,
		Preferences: req.parsedPreferences,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	callID, err := id.ParseCallID(r.URL.Query().Get("call_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListByCall(r.Context(), callID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if raw := r.URL.Query().Get("career_id"); raw != "" {
		careerID, err := id.ParseCareerID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		matching := list[:0]
		for _, a := range list {
			if a.Prefers(careerID) {
				matching = append(matching, a)
			}
		}
		list = matching
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": list})
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMine(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": list})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Get(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/catalog"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Handler serves the read-only catalog surface and the global admission
// params. Catalog mutation belongs to the external administrative system.
type Handler struct {
	store  catalog.Store
	params catalog.ParamsStore
	logger *slog.Logger
}

func New(store catalog.Store, params catalog.ParamsStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, params: params, logger: logger}
}

// RegisterPublic mounts the call listing, served without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/admission-calls", h.HandleListCalls)
	r.Get("/admission-calls/{callID}", h.HandleGetCall)
}

// Register mounts the administrative params endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admission/params", h.HandleGetParams)
	r.Post("/admission/params", h.HandleSaveParams)
}

func (h *Handler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	calls, err := h.store.ListCalls(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if r.URL.Query().Get("active") == "true" {
		now := requestcontext.Now(ctx)
		active := calls[:0]
		for _, c := range calls {
			if c.IsOpenForRegistration(now) {
				active = append(active, c)
			}
		}
		calls = active
	}
	httputil.WriteJSON(w, http.StatusOK, calls)
}

func (h *Handler) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	callID, err := id.ParseCallID(chi.URLParam(r, "callID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	call, err := h.store.GetCall(r.Context(), callID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, call)
}

func (h *Handler) HandleGetParams(w http.ResponseWriter, r *http.Request) {
	params, err := h.params.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, params)
}

// SaveParamsRequest is the body for POST /admission/params.
type SaveParamsRequest struct {
	MinimumAge        *int     `json:"minimum_age"`
	MaximumAge        *int     `json:"maximum_age"`
	RequiredDocuments []string `json:"required_documents"`

	parsedDocs []id.DocumentType
}

func (r *SaveParamsRequest) Validate() error {
	if r.MinimumAge != nil && *r.MinimumAge < 0 {
		return dErrors.New(dErrors.CodeValidation, "minimum_age must not be negative")
	}
	if r.MaximumAge != nil && *r.MaximumAge < 0 {
		return dErrors.New(dErrors.CodeValidation, "maximum_age must not be negative")
	}
	if r.MinimumAge != nil && r.MaximumAge != nil && *r.MinimumAge > *r.MaximumAge {
		return dErrors.New(dErrors.CodeValidation, "minimum_age must not exceed maximum_age")
	}
	r.parsedDocs = r.parsedDocs[:0]
	for _, raw := range r.RequiredDocuments {
		t, err := id.ParseDocumentType(raw)
		if err != nil {
			return err
		}
		r.parsedDocs = append(r.parsedDocs, t)
	}
	return nil
}

func (h *Handler) HandleSaveParams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SaveParamsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	params := &catalog.Params{
		MinimumAge:        req.MinimumAge,
		MaximumAge:        req.MaximumAge,
		RequiredDocuments: req.parsedDocs,
	}
	if err := h.params.Save(ctx, params); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "admission params updated", "request_id", requestID)
	httputil.WriteJSON(w, http.StatusOK, params)
}

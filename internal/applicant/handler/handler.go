package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"admissio/internal/applicant"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the applicant operations the handler needs.
type Service interface {
	Create(ctx context.Context, p applicant.CreateParams) (*applicant.Applicant, error)
	Me(ctx context.Context) (*applicant.Applicant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts applicant endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applicants", h.HandleCreate)
	r.Get("/applicants/me", h.HandleMe)
}

// CreateRequest is the body for POST /applicants.
type CreateRequest struct {
	NationalID string `json:"national_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	BirthDate  string `json:"birth_date"`

	parsedBirthDate time.Time
}

func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.NationalID) == "" {
		return dErrors.New(dErrors.CodeValidation, "national_id is required")
	}
	if strings.TrimSpace(r.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if r.BirthDate == "" {
		return dErrors.New(dErrors.CodeValidation, "birth_date is required")
	}
	parsed, err := time.Parse("2006-01-02", r.BirthDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "birth_date must be YYYY-MM-DD")
	}
	r.parsedBirthDate = parsed
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	a, err := h.service.Create(ctx, applicant.CreateParams{
		NationalID: req.NationalID,
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		BirthDate:  req.parsedBirthDate,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Me(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

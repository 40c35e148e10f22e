package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"admissio/internal/payment"
	id "admissio/pkg/domain"
	"admissio/pkg/platform/httputil"
	"admissio/pkg/requestcontext"
)

// Service defines the payment operations the handler needs.
type Service interface {
	Start(ctx context.Context, applicationID id.ApplicationID, method payment.Method) (*payment.Payment, error)
	Confirm(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error)
	Fail(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error)
	Void(ctx context.Context, paymentID id.PaymentID) (*payment.Payment, error)
	Status(ctx context.Context, applicationID id.ApplicationID) (payment.Status, error)
	List(ctx context.Context, applicationID id.ApplicationID) ([]*payment.Payment, error)
	ListByStatus(ctx context.Context, status payment.Status) ([]*payment.Payment, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts payment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications/{applicationID}/payment", h.HandleStart)
	r.Get("/applications/{applicationID}/payment/status", h.HandleStatus)
	r.Get("/applications/{applicationID}/payments", h.HandleList)
	r.Get("/payments", h.HandleListByStatus)
	r.Post("/payments/{paymentID}/confirm", h.HandleConfirm)
	r.Post("/payments/{paymentID}/fail", h.HandleFail)
	r.Post("/payments/{paymentID}/void", h.HandleVoid)
}

// StartRequest is the body for POST /applications/{id}/payment.
type StartRequest struct {
	Method string `json:"method"`

	parsedMethod payment.Method
}

func (r *StartRequest) Validate() error {
	method, err := payment.ParseMethod(r.Method)
	if err != nil {
		return err
	}
	r.parsedMethod = method
	return nil
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Start(ctx, applicationID, req.parsedMethod)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.Status(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.List(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payments": list})
}

func (h *Handler) HandleListByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := payment.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"payments": list})
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Confirm)
}

func (h *Handler) HandleFail(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Fail)
}

func (h *Handler) HandleVoid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Void)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.PaymentID) (*payment.Payment, error)) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := op(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

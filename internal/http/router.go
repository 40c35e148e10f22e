// Package httpapi assembles the admission REST surface. Handlers stay in
// their module packages; this package only mounts them and applies the
// shared middleware chain.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicanthandler "admissio/internal/applicant/handler"
	applicationhandler "admissio/internal/application/handler"
	artifacthandler "admissio/internal/artifact/handler"
	cataloghandler "admissio/internal/catalog/handler"
	documenthandler "admissio/internal/document/handler"
	evaluationhandler "admissio/internal/evaluation/handler"
	paymenthandler "admissio/internal/payment/handler"
	resultshandler "admissio/internal/results/handler"
	"admissio/internal/platform/middleware"
)

// Handlers collects the module surfaces mounted on the router.
type Handlers struct {
	Applicant   *applicanthandler.Handler
	Application *applicationhandler.Handler
	Payment     *paymenthandler.Handler
	Document    *documenthandler.Handler
	Evaluation  *evaluationhandler.Handler
	Results     *resultshandler.Handler
	Catalog     *cataloghandler.Handler
	Artifact    *artifacthandler.Handler
}

// NewRouter mounts every endpoint. Published results and the call catalog
// are readable without a token; everything else requires a bearer token
// from the identity collaborator.
func NewRouter(auth *middleware.Authenticator, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMeta)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		h.Catalog.RegisterPublic(r)
		h.Results.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Require)
		h.Applicant.Register(r)
		h.Application.Register(r)
		h.Payment.Register(r)
		h.Document.Register(r)
		h.Evaluation.Register(r)
		h.Results.Register(r)
		h.Catalog.Register(r)
		h.Artifact.Register(r)
	})
	return r
}

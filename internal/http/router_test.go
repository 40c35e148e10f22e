package httpapi

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissio/internal/applicant"
	applicanthandler "admissio/internal/applicant/handler"
	"admissio/internal/application"
	applicationhandler "admissio/internal/application/handler"
	"admissio/internal/artifact"
	artifactadapters "admissio/internal/artifact/adapters"
	artifacthandler "admissio/internal/artifact/handler"
	"admissio/internal/catalog"
	cataloghandler "admissio/internal/catalog/handler"
	"admissio/internal/document"
	documentadapters "admissio/internal/document/adapters"
	documenthandler "admissio/internal/document/handler"
	"admissio/internal/evaluation"
	evaluationhandler "admissio/internal/evaluation/handler"
	"admissio/internal/payment"
	paymentadapters "admissio/internal/payment/adapters"
	paymenthandler "admissio/internal/payment/handler"
	"admissio/internal/platform/lock"
	"admissio/internal/platform/middleware"
	"admissio/internal/results"
	resultshandler "admissio/internal/results/handler"
	"admissio/pkg/platform/audit"
	auditmemory "admissio/pkg/platform/audit/store/memory"
	txcontext "admissio/pkg/platform/tx"
)

const testSigningKey = "router-test-key"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	publisher := audit.NewPublisher(auditmemory.New(), log)

	calls := catalog.NewInMemoryStore()
	params := catalog.NewInMemoryParamsStore()
	applicants := applicant.NewInMemoryStore()

	artifactSvc := artifact.NewService(artifact.NewInMemoryStore(), artifactadapters.NewStubRenderer(), nil, log)
	applicantSvc := applicant.NewService(applicants, log)
	applicationSvc := application.NewService(application.NewInMemoryStore(), calls, params, applicants, publisher, nil, log)
	paymentSvc := payment.NewService(payment.NewInMemoryStore(), applicationSvc, calls, paymentadapters.NewStubCheckout(), artifactSvc, publisher, nil, log)
	documentSvc := document.NewService(document.NewInMemoryStore(), applicationSvc, calls, params, documentadapters.NewStubBlobStore(), publisher, nil, log)
	evaluationSvc := evaluation.NewService(evaluation.NewInMemoryStore(), applicationSvc, publisher, nil, log)
	resultsSvc := results.NewService(results.NewInMemoryStore(), applicationSvc, calls, lock.NewLocal(), txcontext.NopRunner{}, artifactSvc, publisher, nil, log)

	return NewRouter(middleware.NewAuthenticator(testSigningKey), Handlers{
		Applicant:   applicanthandler.New(applicantSvc, log),
		Application: applicationhandler.New(applicationSvc, log),
		Payment:     paymenthandler.New(paymentSvc, log),
		Document:    documenthandler.New(documentSvc, log),
		Evaluation:  evaluationhandler.New(evaluationSvc, log),
		Results:     resultshandler.New(resultsSvc, log),
		Catalog:     cataloghandler.New(calls, params, log),
		Artifact:    artifacthandler.New(artifactSvc, log),
	})
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	t.Run("healthz is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics is open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("call catalog is readable without a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admission-calls", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("results listing validates its query without a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mutations require a bearer token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/applicants", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
		signed, err := token.SignedString([]byte("wrong-key"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/applicants", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated applicant registration round-trips", func(t *testing.T) {
		body := `{"national_id":"10000001","full_name":"Test Person","email":"t@example.com","birth_date":"2005-06-01"}`
		req := httptest.NewRequest(http.MethodPost, "/applicants", strings.NewReader(body))
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/applicants/me", nil)
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Test Person")
	})

	t.Run("request id header is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-Id", "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
	})
}

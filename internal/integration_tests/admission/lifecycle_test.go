//go:build integration

// Package admission runs the full lifecycle against real postgres:
// registration, payment, document review, evaluation and publication,
// with every store backed by the migrated schema.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissio/internal/applicant"
	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/document"
	documentadapters "admissio/internal/document/adapters"
	"admissio/internal/evaluation"
	"admissio/internal/payment"
	paymentadapters "admissio/internal/payment/adapters"
	"admissio/internal/platform/lock"
	"admissio/internal/results"
	id "admissio/pkg/domain"
	"admissio/pkg/platform/audit"
	auditpostgres "admissio/pkg/platform/audit/store/postgres"
	txcontext "admissio/pkg/platform/tx"
	"admissio/pkg/requestcontext"
	"admissio/pkg/testutil/containers"
)

var (
	callID   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	careerID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testNow  = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
)

type env struct {
	lifecycle *application.Service
	payments  *payment.Service
	documents *document.Service
	scores    *evaluation.Service
	allocator *results.Service
	outbox    *auditpostgres.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	pg := containers.NewPostgresContainer(t)
	db := pg.DB
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO careers (id, code, name) VALUES ($1, 'CS', 'Computer Science')`, careerID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO admission_calls (
			id, code, name, academic_year, academic_period,
			registration_start, registration_end, exam_date, results_date,
			application_fee, max_preferences, required_documents, status
		) VALUES ($1, 'ADM2026', 'Admission 2026', 2026, 'I',
			'2026-03-01', '2026-04-01', '2026-04-15', '2026-05-01',
			150.00, 2, '["DNI_COPY"]', 'OPEN')
	`, callID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO call_career_offers (call_id, career_id, vacancies) VALUES ($1, $2, 1)
	`, callID, careerID)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	outbox := auditpostgres.New(db)
	publisher := audit.NewPublisher(outbox, logger)
	calls := catalog.NewPostgresStore(db)
	params := catalog.NewPostgresParamsStore(db)
	applicants := applicant.NewPostgresStore(db)

	lifecycle := application.NewService(application.NewPostgresStore(db), calls, params, applicants, publisher, nil, logger)
	payments := payment.NewService(payment.NewPostgresStore(db), lifecycle, calls, paymentadapters.NewStubCheckout(), nil, publisher, nil, logger)
	documents := document.NewService(document.NewPostgresStore(db), lifecycle, calls, params, documentadapters.NewStubBlobStore(), publisher, nil, logger)
	scores := evaluation.NewService(evaluation.NewPostgresStore(db), lifecycle, publisher, nil, logger)
	allocator := results.NewService(results.NewPostgresStore(db), lifecycle, calls, lock.NewLocal(), txcontext.DBRunner{DB: db}, nil, publisher, nil, logger)

	for i, subject := range []string{"user-1", "user-2"} {
		person, err := applicant.NewApplicant(
			id.NewApplicantID(), subject, fmt.Sprintf("1000000%d", i+1), "Test Person", subject+"@example.com", "",
			time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), testNow,
		)
		require.NoError(t, err)
		require.NoError(t, applicants.Create(ctx, person))
	}

	return &env{
		lifecycle: lifecycle,
		payments:  payments,
		documents: documents,
		scores:    scores,
		allocator: allocator,
		outbox:    outbox,
	}
}

func authedCtx(subject string) context.Context {
	return requestcontext.WithTime(requestcontext.WithSubject(context.Background(), subject), testNow)
}

// walkToEvaluated drives one application through payment, documents and
// scoring, returning it in EVALUATED state.
func walkToEvaluated(t *testing.T, e *env, subject string, exam float64) *application.Application {
	t.Helper()
	ctx := authedCtx(subject)

	a, err := e.lifecycle.Create(ctx, application.CreateParams{
		CallID:      id.CallID(callID),
		Preferences: []id.CareerID{id.CareerID(careerID)},
	})
	require.NoError(t, err)

	p, err := e.payments.Start(ctx, a.ID, payment.MethodCashier)
	require.NoError(t, err)
	_, err = e.payments.Confirm(ctx, p.ID)
	require.NoError(t, err)

	doc, err := e.documents.Upload(ctx, document.UploadParams{
		ApplicationID: a.ID,
		Type:          id.DocumentType("DNI_COPY"),
		ContentType:   "application/pdf",
		Content:       []byte("scanned document"),
	})
	require.NoError(t, err)
	_, err = e.documents.Review(ctx, a.ID, doc.ID, document.StatusApproved, "")
	require.NoError(t, err)

	_, err = e.scores.SetScores(ctx, a.ID, exam, exam, exam)
	require.NoError(t, err)
	return a
}

func TestAdmissionLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := authedCtx("reviewer-1")

	first := walkToEvaluated(t, e, "user-1", 90)
	second := walkToEvaluated(t, e, "user-2", 80)
	assert.Equal(t, "ADM2026-00001", first.Number)
	assert.Equal(t, "ADM2026-00002", second.Number)

	report, err := e.scores.ComputeFinal(ctx, id.CallID(callID), evaluation.Weights{Exam: 0.5, CV: 0.3, Interview: 0.2})
	require.NoError(t, err)
	require.Len(t, report.Evaluated, 2)
	assert.Empty(t, report.Failures)

	publication, err := e.allocator.Publish(ctx, id.CallID(callID), id.CareerID(careerID))
	require.NoError(t, err)
	require.Len(t, publication.Entries, 2)
	assert.Equal(t, application.StatusAdmitted, publication.Entries[0].Outcome)
	assert.Equal(t, application.StatusWaitingList, publication.Entries[1].Outcome)
	assert.Equal(t, first.Number, publication.Entries[0].Number)

	// republish must replay, not reallocate
	replay, err := e.allocator.Publish(ctx, id.CallID(callID), id.CareerID(careerID))
	require.NoError(t, err)
	assert.Equal(t, publication.Entries, replay.Entries)

	closed, err := e.allocator.Close(ctx, id.CallID(callID), id.CareerID(careerID))
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)

	got, err := e.lifecycle.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusRejected, got.Status)

	entries, err := e.outbox.FetchUnpublished(context.Background(), 100)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

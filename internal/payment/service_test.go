package payment

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissio/internal/applicant"
	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/payment/adapters"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	auditmemory "admissio/pkg/platform/audit/store/memory"
	"admissio/pkg/requestcontext"
)

var (
	testCallID  = mustCallID("11111111-1111-1111-1111-111111111111")
	testCareer  = mustCareerID("22222222-2222-2222-2222-222222222222")
	testNow     = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	testRegOpen = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testRegEnd  = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func mustCallID(s string) id.CallID {
	v, err := id.ParseCallID(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustCareerID(s string) id.CareerID {
	v, err := id.ParseCareerID(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fixture struct {
	service   *Service
	store     *InMemoryStore
	lifecycle *application.Service
	appStore  *application.InMemoryStore
	calls     *catalog.InMemoryStore
	publisher *audit.Publisher
	auditLog  *auditmemory.Store
	app       *application.Application
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	calls := catalog.NewInMemoryStore()
	require.NoError(t, calls.Seed(&catalog.AdmissionCall{
		ID:                testCallID,
		Code:              "ADM2026",
		Name:              "Admission 2026",
		RegistrationStart: testRegOpen,
		RegistrationEnd:   testRegEnd,
		ApplicationFee:    150.00,
		MaxPreferences:    2,
		Careers: []catalog.CareerOffer{
			{CareerID: testCareer, Code: "CS", Name: "Computer Science", Vacancies: 2},
		},
		Status: catalog.CallStatusOpen,
	}))

	applicants := applicant.NewInMemoryStore()
	person, err := applicant.NewApplicant(
		id.NewApplicantID(), "user-1", "10000001", "Test Person", "test@example.com", "",
		time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), testNow,
	)
	require.NoError(t, err)
	require.NoError(t, applicants.Create(context.Background(), person))

	logger := slog.New(slog.DiscardHandler)
	auditLog := auditmemory.New()
	publisher := audit.NewPublisher(auditLog, logger)

	appStore := application.NewInMemoryStore()
	lifecycle := application.NewService(appStore, calls, catalog.NewInMemoryParamsStore(), applicants, publisher, nil, logger)

	ctx := requestcontext.WithTime(requestcontext.WithSubject(context.Background(), "user-1"), testNow)
	app, err := lifecycle.Create(ctx, application.CreateParams{
		CallID:      testCallID,
		Preferences: []id.CareerID{testCareer},
	})
	require.NoError(t, err)

	store := NewInMemoryStore()
	service := NewService(store, lifecycle, calls, adapters.NewStubCheckout(), nil, publisher, nil, logger)
	return &fixture{
		service:   service,
		store:     store,
		lifecycle: lifecycle,
		appStore:  appStore,
		calls:     calls,
		publisher: publisher,
		auditLog:  auditLog,
		app:       app,
	}
}

// flakyLifecycle drops a set number of advance calls to stand in for a
// transient store failure between settlement and the lifecycle write.
type flakyLifecycle struct {
	*application.Service
	failures int
}

func (f *flakyLifecycle) AdvanceAfterPayment(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error) {
	if f.failures > 0 {
		f.failures--
		return nil, dErrors.New(dErrors.CodeInternal, "lifecycle store unavailable")
	}
	return f.Service.AdvanceAfterPayment(ctx, applicationID)
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func TestStart(t *testing.T) {
	t.Run("opens pending payment with fee snapshot and order reference", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, p.Status)
		assert.Equal(t, 150.00, p.Amount)
		assert.NotEmpty(t, p.OrderID)
	})

	t.Run("cashier payments carry no order reference", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		assert.Empty(t, p.OrderID)
	})

	t.Run("second start reuses the pending payment", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		second, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.OrderID, second.OrderID)
	})

	t.Run("rejects an already paid application", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)

		_, err = f.service.Start(testCtx(), f.app.ID, MethodPSP)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyPaid))
	})

	t.Run("allows retry after a failed attempt", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		_, err = f.service.Fail(testCtx(), first.ID)
		require.NoError(t, err)

		second, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestConfirm(t *testing.T) {
	t.Run("settles payment and advances the application", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)

		confirmed, err := f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, confirmed.Status)
		require.NotNil(t, confirmed.PaidAt)

		a, err := f.lifecycle.Get(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusDocsPending, a.Status)
	})

	t.Run("is idempotent and does not advance the lifecycle twice", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)

		again, err := f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, again.Status)

		a, err := f.lifecycle.Get(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusDocsPending, a.Status)

		var confirmations int
		for _, e := range f.auditLog.All() {
			if e.Action == audit.ActionPaymentConfirmed {
				confirmations++
			}
		}
		assert.Equal(t, 1, confirmations)
	})

	t.Run("replay finishes an advance lost after settlement", func(t *testing.T) {
		f := newFixture(t)
		flaky := &flakyLifecycle{Service: f.lifecycle, failures: 1}
		svc := NewService(f.store, flaky, f.calls, adapters.NewStubCheckout(), nil, f.publisher, nil, slog.New(slog.DiscardHandler))

		p, err := svc.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)

		// the settle lands but the lifecycle write is lost
		_, err = svc.Confirm(testCtx(), p.ID)
		require.Error(t, err)
		stored, err := f.store.GetByID(testCtx(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, stored.Status)
		a, err := f.lifecycle.Get(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusPendingPayment, a.Status)

		// replaying the confirm repairs the stuck application
		confirmed, err := svc.Confirm(testCtx(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, confirmed.Status)
		a, err = f.lifecycle.Get(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusDocsPending, a.Status)
	})

	t.Run("rejects confirming a failed payment", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		_, err = f.service.Fail(testCtx(), p.ID)
		require.NoError(t, err)

		_, err = f.service.Confirm(testCtx(), p.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestVoid(t *testing.T) {
	t.Run("rejects voiding a pending payment", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		_, err = f.service.Void(testCtx(), p.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("voiding a paid payment after progression records an anomaly and keeps the application", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)

		voided, err := f.service.Void(testCtx(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusVoided, voided.Status)

		// no rollback of the application
		a, err := f.lifecycle.Get(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusDocsPending, a.Status)

		var anomalies int
		for _, e := range f.auditLog.All() {
			if e.Action == audit.ActionPaymentVoidAnomaly {
				anomalies++
			}
		}
		assert.Equal(t, 1, anomalies)
	})

	t.Run("rejects voiding twice", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)
		_, err = f.service.Void(testCtx(), p.ID)
		require.NoError(t, err)
		_, err = f.service.Void(testCtx(), p.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestStatus(t *testing.T) {
	t.Run("no attempt reads as pending", func(t *testing.T) {
		f := newFixture(t)
		status, err := f.service.Status(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
	})

	t.Run("unknown application yields not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Status(testCtx(), id.NewApplicationID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("voided attempt falls back to the previous one", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), p.ID)
		require.NoError(t, err)
		_, err = f.service.Void(testCtx(), p.ID)
		require.NoError(t, err)

		status, err := f.service.Status(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)
	})

	t.Run("reports the effective status across attempts", func(t *testing.T) {
		f := newFixture(t)

		p, err := f.service.Start(testCtx(), f.app.ID, MethodPSP)
		require.NoError(t, err)
		status, err := f.service.Status(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, status)

		_, err = f.service.Fail(testCtx(), p.ID)
		require.NoError(t, err)
		status, err = f.service.Status(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, status)

		retry, err := f.service.Start(testCtx(), f.app.ID, MethodCashier)
		require.NoError(t, err)
		_, err = f.service.Confirm(testCtx(), retry.ID)
		require.NoError(t, err)
		status, err = f.service.Status(testCtx(), f.app.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, status)
	})
}

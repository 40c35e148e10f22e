package results

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admissio/internal/applicant"
	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/platform/lock"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	auditmemory "admissio/pkg/platform/audit/store/memory"
	txcontext "admissio/pkg/platform/tx"
	"admissio/pkg/requestcontext"
)

var (
	testCallID = mustCallID("11111111-1111-1111-1111-111111111111")
	testCS     = mustCareerID("22222222-2222-2222-2222-222222222222")
	testMed    = mustCareerID("33333333-3333-3333-3333-333333333333")
	testNow    = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
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

type stubSubmitter struct {
	mu   sync.Mutex
	jobs []string
}

func (s *stubSubmitter) Submit(_ context.Context, kind string, _ any) (id.JobID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, kind)
	return id.NewJobID(), nil
}

type fixture struct {
	service    *Service
	lifecycle  *application.Service
	applicants *applicant.InMemoryStore
	calls      *catalog.InMemoryStore
	publisher  *audit.Publisher
	auditTrail *auditmemory.Store
	submitter  *stubSubmitter
	seq        int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	calls := catalog.NewInMemoryStore()
	require.NoError(t, calls.Seed(&catalog.AdmissionCall{
		ID:                testCallID,
		Code:              "ADM2026",
		Name:              "Admission 2026",
		RegistrationStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		RegistrationEnd:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		MaxPreferences:    2,
		Careers: []catalog.CareerOffer{
			{CareerID: testCS, Code: "CS", Name: "Computer Science", Vacancies: 2},
			{CareerID: testMed, Code: "MED", Name: "Medicine", Vacancies: 1},
		},
		Status: catalog.CallStatusOpen,
	}))

	logger := slog.New(slog.DiscardHandler)
	auditTrail := auditmemory.New()
	publisher := audit.NewPublisher(auditTrail, logger)
	applicants := applicant.NewInMemoryStore()
	lifecycle := application.NewService(application.NewInMemoryStore(), calls, catalog.NewInMemoryParamsStore(), applicants, publisher, nil, logger)

	submitter := &stubSubmitter{}
	service := NewService(NewInMemoryStore(), lifecycle, calls, lock.NewLocal(), txcontext.NopRunner{}, submitter, publisher, nil, logger)
	return &fixture{
		service:    service,
		lifecycle:  lifecycle,
		applicants: applicants,
		calls:      calls,
		publisher:  publisher,
		auditTrail: auditTrail,
		submitter:  submitter,
	}
}

// failingLifecycle lets a fixed number of result writes through and then
// drops the rest, standing in for a store failure mid-close.
type failingLifecycle struct {
	*application.Service
	allowed int
	applied int
}

func (f *failingLifecycle) ApplyResult(ctx context.Context, applicationID id.ApplicationID, outcome application.Outcome) (*application.Application, error) {
	f.applied++
	if f.applied > f.allowed {
		return nil, dErrors.New(dErrors.CodeInternal, "lifecycle store unavailable")
	}
	return f.Service.ApplyResult(ctx, applicationID, outcome)
}

// newEvaluatedApp registers an applicant, walks their application to
// EVALUATED and records finalScore. Registration order fixes the tie-break
// order.
func (f *fixture) newEvaluatedApp(t *testing.T, finalScore float64, prefs ...id.CareerID) *application.Application {
	t.Helper()
	f.seq++
	subject := fmt.Sprintf("user-%d", f.seq)
	ctx := context.Background()
	person, err := applicant.NewApplicant(
		id.NewApplicantID(), subject, fmt.Sprintf("1000000%d", f.seq), "Test Person", subject+"@example.com", "",
		time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), testNow,
	)
	require.NoError(t, err)
	require.NoError(t, f.applicants.Create(ctx, person))

	authed := requestcontext.WithTime(requestcontext.WithSubject(ctx, subject), testNow)
	a, err := f.lifecycle.Create(authed, application.CreateParams{CallID: testCallID, Preferences: prefs})
	require.NoError(t, err)
	_, err = f.lifecycle.AdvanceAfterPayment(authed, a.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.MarkDocsComplete(authed, a.ID)
	require.NoError(t, err)
	a, err = f.lifecycle.RecordEvaluation(authed, a.ID, finalScore)
	require.NoError(t, err)
	return a
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func (f *fixture) auditCount(action audit.Action) int {
	n := 0
	for _, e := range f.auditTrail.All() {
		if e.Action == action {
			n++
		}
	}
	return n
}

func TestRank(t *testing.T) {
	t.Run("orders by score descending with earliest-first ties", func(t *testing.T) {
		f := newFixture(t)
		low := f.newEvaluatedApp(t, 70, testCS)
		tieFirst := f.newEvaluatedApp(t, 85, testCS)
		tieSecond := f.newEvaluatedApp(t, 85, testCS)
		top := f.newEvaluatedApp(t, 92, testCS)

		ranked, err := f.service.Rank(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.Len(t, ranked, 4)
		assert.Equal(t, top.ID, ranked[0].Application.ID)
		assert.Equal(t, tieFirst.ID, ranked[1].Application.ID)
		assert.Equal(t, tieSecond.ID, ranked[2].Application.ID)
		assert.Equal(t, low.ID, ranked[3].Application.ID)
	})

	t.Run("only includes applications preferring the career", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 90, testMed)
		cs := f.newEvaluatedApp(t, 75, testCS, testMed)

		ranked, err := f.service.Rank(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, cs.ID, ranked[0].Application.ID)
	})

	t.Run("unknown career yields not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Rank(testCtx(), testCallID, mustCareerID("44444444-4444-4444-4444-444444444444"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestPublish(t *testing.T) {
	t.Run("admits top vacancies and waitlists the rest", func(t *testing.T) {
		f := newFixture(t)
		first := f.newEvaluatedApp(t, 90, testCS)
		second := f.newEvaluatedApp(t, 85, testCS)
		third := f.newEvaluatedApp(t, 80, testCS)

		publication, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.Len(t, publication.Entries, 3)
		assert.Equal(t, 2, publication.Vacancies)
		assert.Equal(t, application.StatusAdmitted, publication.Entries[0].Outcome)
		assert.Equal(t, application.StatusAdmitted, publication.Entries[1].Outcome)
		assert.Equal(t, application.StatusWaitingList, publication.Entries[2].Outcome)
		assert.Equal(t, []int{1, 2, 3}, []int{publication.Entries[0].Rank, publication.Entries[1].Rank, publication.Entries[2].Rank})

		for appID, want := range map[id.ApplicationID]application.Status{
			first.ID:  application.StatusAdmitted,
			second.ID: application.StatusAdmitted,
			third.ID:  application.StatusWaitingList,
		} {
			current, err := f.lifecycle.Get(testCtx(), appID)
			require.NoError(t, err)
			assert.Equal(t, want, current.Status)
		}
	})

	t.Run("fewer applications than vacancies admits all", func(t *testing.T) {
		f := newFixture(t)
		only := f.newEvaluatedApp(t, 60, testCS)

		publication, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.Len(t, publication.Entries, 1)
		assert.Equal(t, application.StatusAdmitted, publication.Entries[0].Outcome)

		current, err := f.lifecycle.Get(testCtx(), only.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusAdmitted, current.Status)
	})

	t.Run("republish replays the snapshot without reallocating", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 90, testCS)
		waitlisted := f.newEvaluatedApp(t, 85, testCS)
		f.newEvaluatedApp(t, 80, testCS)

		first, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)

		// an extra arrival between publishes must not change the snapshot
		f.newEvaluatedApp(t, 99, testCS)

		replay, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		assert.Equal(t, first.Entries, replay.Entries)
		assert.Equal(t, first.PublishedAt, replay.PublishedAt)
		assert.Equal(t, 1, f.auditCount(audit.ActionResultsPublished))

		current, err := f.lifecycle.Get(testCtx(), waitlisted.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusAdmitted, current.Status)
	})

	t.Run("concurrent publishes allocate exactly once", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 5; i++ {
			f.newEvaluatedApp(t, float64(60+i), testCS)
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.Publish(testCtx(), testCallID, testCS)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, f.auditCount(audit.ActionResultsPublished))
		publication, err := f.service.store.Get(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		assert.Equal(t, 2, publication.Admitted())
	})

	t.Run("pairs publish independently", func(t *testing.T) {
		f := newFixture(t)
		both := f.newEvaluatedApp(t, 88, testCS, testMed)

		csPub, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.Len(t, csPub.Entries, 1)

		// admitted via CS, so no longer a MED candidate
		medPub, err := f.service.Publish(testCtx(), testCallID, testMed)
		require.NoError(t, err)
		assert.Empty(t, medPub.Entries)

		current, err := f.lifecycle.Get(testCtx(), both.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusAdmitted, current.Status)
	})
}

func TestClose(t *testing.T) {
	t.Run("rejects waitlisted applications and stamps closure", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 90, testCS)
		f.newEvaluatedApp(t, 85, testCS)
		waitlisted := f.newEvaluatedApp(t, 80, testCS)

		_, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)

		closed, err := f.service.Close(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, application.StatusRejected, closed.Entries[2].Outcome)

		current, err := f.lifecycle.Get(testCtx(), waitlisted.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusRejected, current.Status)
	})

	t.Run("replay finishes a close interrupted between rejections", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 90, testCS)
		f.newEvaluatedApp(t, 85, testCS)
		firstWaitlisted := f.newEvaluatedApp(t, 80, testCS)
		secondWaitlisted := f.newEvaluatedApp(t, 75, testCS)

		_, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)

		broken := &failingLifecycle{Service: f.lifecycle, allowed: 1}
		interrupted := NewService(f.service.store, broken, f.calls, lock.NewLocal(), txcontext.NopRunner{}, f.submitter, f.publisher, nil, slog.New(slog.DiscardHandler))
		_, err = interrupted.Close(testCtx(), testCallID, testCS)
		require.Error(t, err)

		// the first rejection landed before the failure
		current, err := f.lifecycle.Get(testCtx(), firstWaitlisted.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusRejected, current.Status)

		closed, err := f.service.Close(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		require.NotNil(t, closed.ClosedAt)
		assert.Equal(t, application.StatusRejected, closed.Entries[2].Outcome)
		assert.Equal(t, application.StatusRejected, closed.Entries[3].Outcome)
		assert.Equal(t, 1, f.auditCount(audit.ActionResultsClosed))

		for _, appID := range []id.ApplicationID{firstWaitlisted.ID, secondWaitlisted.ID} {
			current, err := f.lifecycle.Get(testCtx(), appID)
			require.NoError(t, err)
			assert.Equal(t, application.StatusRejected, current.Status)
		}
	})

	t.Run("requires a prior publish", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Close(testCtx(), testCallID, testCS)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("second close is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 90, testCS)
		_, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		_, err = f.service.Close(testCtx(), testCallID, testCS)
		require.NoError(t, err)

		_, err = f.service.Close(testCtx(), testCallID, testCS)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestResults(t *testing.T) {
	t.Run("returns a live preview before publication", func(t *testing.T) {
		f := newFixture(t)
		a := f.newEvaluatedApp(t, 77, testCS)

		publication, published, err := f.service.Results(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		assert.False(t, published)
		require.Len(t, publication.Entries, 1)
		assert.Equal(t, a.ID, publication.Entries[0].ApplicationID)
		assert.Equal(t, application.StatusEvaluated, publication.Entries[0].Outcome)
	})

	t.Run("returns the snapshot after publication", func(t *testing.T) {
		f := newFixture(t)
		f.newEvaluatedApp(t, 77, testCS)
		_, err := f.service.Publish(testCtx(), testCallID, testCS)
		require.NoError(t, err)

		publication, published, err := f.service.Results(testCtx(), testCallID, testCS)
		require.NoError(t, err)
		assert.True(t, published)
		assert.Equal(t, application.StatusAdmitted, publication.Entries[0].Outcome)
	})
}

func TestActa(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Acta(testCtx(), testCallID, testCS)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	f.newEvaluatedApp(t, 77, testCS)
	_, err = f.service.Publish(testCtx(), testCallID, testCS)
	require.NoError(t, err)

	jobID, err := f.service.Acta(testCtx(), testCallID, testCS)
	require.NoError(t, err)
	assert.NotEqual(t, id.JobID{}, jobID)
	assert.Equal(t, []string{"acta"}, f.submitter.jobs)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.newEvaluatedApp(t, 90, testCS)
	f.newEvaluatedApp(t, 80, testCS)
	_, err := f.service.Publish(testCtx(), testCallID, testCS)
	require.NoError(t, err)

	dash, err := f.service.Summary(testCtx())
	require.NoError(t, err)
	assert.Equal(t, 1, dash.OpenCalls)
	assert.Equal(t, 2, dash.TotalApplications)
	assert.Equal(t, 2, dash.ByStatus[string(application.StatusAdmitted)])
	assert.Equal(t, 1, dash.PublishedPairs)
}

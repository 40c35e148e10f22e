package evaluation

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
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	auditmemory "admissio/pkg/platform/audit/store/memory"
	"admissio/pkg/requestcontext"
)

var (
	testCallID = mustCallID("11111111-1111-1111-1111-111111111111")
	testCareer = mustCareerID("22222222-2222-2222-2222-222222222222")
	testNow    = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	standardWeights = Weights{Exam: 0.5, CV: 0.3, Interview: 0.2}
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
	service    *Service
	lifecycle  *application.Service
	applicants *applicant.InMemoryStore
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
			{CareerID: testCareer, Code: "CS", Name: "Computer Science", Vacancies: 2},
		},
		Status: catalog.CallStatusOpen,
	}))

	logger := slog.New(slog.DiscardHandler)
	publisher := audit.NewPublisher(auditmemory.New(), logger)
	applicants := applicant.NewInMemoryStore()
	lifecycle := application.NewService(application.NewInMemoryStore(), calls, catalog.NewInMemoryParamsStore(), applicants, publisher, nil, logger)

	service := NewService(NewInMemoryStore(), lifecycle, publisher, nil, logger)
	return &fixture{service: service, lifecycle: lifecycle, applicants: applicants}
}

// newDocsCompleteApp registers an applicant and walks their application to
// DOCS_COMPLETE.
func (f *fixture) newDocsCompleteApp(t *testing.T, subject, nationalID string) *application.Application {
	t.Helper()
	ctx := context.Background()
	person, err := applicant.NewApplicant(
		id.NewApplicantID(), subject, nationalID, "Test Person", subject+"@example.com", "",
		time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), testNow,
	)
	require.NoError(t, err)

	require.NoError(t, f.applicants.Create(ctx, person))

	authed := requestcontext.WithTime(requestcontext.WithSubject(ctx, subject), testNow)
	a, err := f.lifecycle.Create(authed, application.CreateParams{
		CallID:      testCallID,
		Preferences: []id.CareerID{testCareer},
	})
	require.NoError(t, err)
	_, err = f.lifecycle.AdvanceAfterPayment(authed, a.ID)
	require.NoError(t, err)
	_, err = f.lifecycle.MarkDocsComplete(authed, a.ID)
	require.NoError(t, err)
	return a
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), testNow)
}

func TestSetScores(t *testing.T) {
	t.Run("upserts raw components without computing a final", func(t *testing.T) {
		f := newFixture(t)
		a := f.newDocsCompleteApp(t, "user-1", "10000001")

		score, err := f.service.SetScores(testCtx(), a.ID, 80, 70, 90)
		require.NoError(t, err)
		assert.Equal(t, 80.0, score.Exam)

		// iterative entry overwrites
		score, err = f.service.SetScores(testCtx(), a.ID, 85, 70, 90)
		require.NoError(t, err)
		assert.Equal(t, 85.0, score.Exam)

		current, err := f.lifecycle.Get(testCtx(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusDocsComplete, current.Status)
		assert.Nil(t, current.FinalScore)
	})

	t.Run("rejects scores before documents are complete", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		person, err := applicant.NewApplicant(
			id.NewApplicantID(), "user-1", "10000001", "Test Person", "t@example.com", "",
			time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC), testNow,
		)
		require.NoError(t, err)
		require.NoError(t, f.applicants.Create(ctx, person))
		authed := requestcontext.WithTime(requestcontext.WithSubject(ctx, "user-1"), testNow)
		a, err := f.lifecycle.Create(authed, application.CreateParams{
			CallID:      testCallID,
			Preferences: []id.CareerID{testCareer},
		})
		require.NoError(t, err)

		_, err = f.service.SetScores(testCtx(), a.ID, 80, 70, 90)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	t.Run("rejects negative components", func(t *testing.T) {
		f := newFixture(t)
		a := f.newDocsCompleteApp(t, "user-1", "10000001")

		_, err := f.service.SetScores(testCtx(), a.ID, -1, 70, 90)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestComputeFinal(t *testing.T) {
	t.Run("computes weighted rounded finals and records them", func(t *testing.T) {
		f := newFixture(t)
		a := f.newDocsCompleteApp(t, "user-1", "10000001")
		_, err := f.service.SetScores(testCtx(), a.ID, 80, 70, 93.33)
		require.NoError(t, err)

		report, err := f.service.ComputeFinal(testCtx(), testCallID, standardWeights)
		require.NoError(t, err)
		require.Len(t, report.Evaluated, 1)
		assert.Empty(t, report.Failures)
		// 80*0.5 + 70*0.3 + 93.33*0.2 = 79.666 → 79.67
		assert.Equal(t, 79.67, report.Evaluated[0].FinalScore)

		current, err := f.lifecycle.Get(testCtx(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusEvaluated, current.Status)
		require.NotNil(t, current.FinalScore)
		assert.Equal(t, 79.67, *current.FinalScore)
	})

	t.Run("applications without scores count as zero, not skipped", func(t *testing.T) {
		f := newFixture(t)
		scored := f.newDocsCompleteApp(t, "user-1", "10000001")
		unscored := f.newDocsCompleteApp(t, "user-2", "10000002")
		_, err := f.service.SetScores(testCtx(), scored.ID, 80, 80, 80)
		require.NoError(t, err)

		report, err := f.service.ComputeFinal(testCtx(), testCallID, standardWeights)
		require.NoError(t, err)
		require.Len(t, report.Evaluated, 2)

		current, err := f.lifecycle.Get(testCtx(), unscored.ID)
		require.NoError(t, err)
		assert.Equal(t, application.StatusEvaluated, current.Status)
		require.NotNil(t, current.FinalScore)
		assert.Equal(t, 0.0, *current.FinalScore)
	})

	t.Run("recompute covers already evaluated applications", func(t *testing.T) {
		f := newFixture(t)
		a := f.newDocsCompleteApp(t, "user-1", "10000001")
		_, err := f.service.SetScores(testCtx(), a.ID, 80, 80, 80)
		require.NoError(t, err)

		_, err = f.service.ComputeFinal(testCtx(), testCallID, standardWeights)
		require.NoError(t, err)

		// corrected entry, then a re-run
		_, err = f.service.SetScores(testCtx(), a.ID, 90, 80, 80)
		require.NoError(t, err)
		report, err := f.service.ComputeFinal(testCtx(), testCallID, standardWeights)
		require.NoError(t, err)
		require.Len(t, report.Evaluated, 1)
		assert.Equal(t, 85.0, report.Evaluated[0].FinalScore)
	})

	t.Run("empty call yields not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ComputeFinal(testCtx(), testCallID, standardWeights)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("rejects negative weights", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ComputeFinal(testCtx(), testCallID, Weights{Exam: -0.5, CV: 1.0, Interview: 0.5})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestRounding(t *testing.T) {
	score := &Score{Exam: 79.666, CV: 0, Interview: 0}
	assert.Equal(t, 79.67, score.Final(Weights{Exam: 1}))

	score = &Score{Exam: 10, CV: 20, Interview: 30}
	assert.Equal(t, 20.0, score.Final(Weights{Exam: 1.0 / 3, CV: 1.0 / 3, Interview: 1.0 / 3}))
}

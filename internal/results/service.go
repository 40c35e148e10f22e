package results

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"admissio/internal/application"
	"admissio/internal/catalog"
	"admissio/internal/platform/lock"
	"admissio/internal/results/metrics"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	txcontext "admissio/pkg/platform/tx"
	"admissio/pkg/requestcontext"
)

// Lifecycle is the slice of the application service the allocator drives.
type Lifecycle interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
	ListByCallAndStatus(ctx context.Context, callID id.CallID, status application.Status) ([]*application.Application, error)
	ListByCall(ctx context.Context, callID id.CallID) ([]*application.Application, error)
	ApplyResult(ctx context.Context, applicationID id.ApplicationID, outcome application.Outcome) (*application.Application, error)
}

// CatalogReader resolves calls and their career offers.
type CatalogReader interface {
	GetCall(ctx context.Context, callID id.CallID) (*catalog.AdmissionCall, error)
	ListCalls(ctx context.Context) ([]*catalog.AdmissionCall, error)
}

// ArtifactSubmitter hands acta rendering to the artifact collaborator.
type ArtifactSubmitter interface {
	Submit(ctx context.Context, kind string, payload any) (id.JobID, error)
}

const publishLockTTL = 30 * time.Second

// Service is the results allocator. Publication for one (call, career)
// pair runs under an exclusive lock; pairs do not block each other.
type Service struct {
	store     Store
	lifecycle Lifecycle
	calls     CatalogReader
	locker    lock.Locker
	runner    txcontext.Runner
	artifacts ArtifactSubmitter
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(store Store, lifecycle Lifecycle, calls CatalogReader, locker lock.Locker, runner txcontext.Runner, artifacts ArtifactSubmitter, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		lifecycle: lifecycle,
		calls:     calls,
		locker:    locker,
		runner:    runner,
		artifacts: artifacts,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("admissio/results"),
	}
}

// Ranked is one application in rank order, before any allocation.
type Ranked struct {
	Application *application.Application
	FinalScore  float64
}

// Rank returns the EVALUATED applications whose preferences include
// careerID, sorted by final score descending. Ties resolve by creation
// order, earliest first, so repeated calls yield identical order.
func (s *Service) Rank(ctx context.Context, callID id.CallID, careerID id.CareerID) ([]Ranked, error) {
	if _, err := s.offer(ctx, callID, careerID); err != nil {
		return nil, err
	}
	evaluated, err := s.lifecycle.ListByCallAndStatus(ctx, callID, application.StatusEvaluated)
	if err != nil {
		return nil, err
	}

	var ranked []Ranked
	for _, a := range evaluated {
		if !a.Prefers(careerID) {
			continue
		}
		score := 0.0
		if a.FinalScore != nil {
			score = *a.FinalScore
		}
		ranked = append(ranked, Ranked{Application: a, FinalScore: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].Application.Sequence < ranked[j].Application.Sequence
	})
	return ranked, nil
}

// Publish allocates the pair's vacancies over the current ranking.
//
// Idempotent: a pair already published returns its existing snapshot
// untouched, so a re-submitted request can never consume vacancies twice.
// The read-rank-allocate-mark sequence runs under an exclusive per-pair
// lock; different pairs publish concurrently.
func (s *Service) Publish(ctx context.Context, callID id.CallID, careerID id.CareerID) (*Publication, error) {
	offer, err := s.offer(ctx, callID, careerID)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, publishLockKey(callID, careerID), publishLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := s.tracer.Start(ctx, "results.publish", trace.WithAttributes(
		attribute.String("call_id", callID.String()),
		attribute.String("career_id", careerID.String()),
	))
	defer span.End()
	started := time.Now()

	if existing, err := s.store.Get(ctx, callID, careerID); err == nil {
		s.metrics.IncrementPublication("replay")
		return existing, nil
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	ranked, err := s.Rank(ctx, callID, careerID)
	if err != nil {
		return nil, err
	}

	publication := &Publication{
		CallID:      callID,
		CareerID:    careerID,
		Vacancies:   offer.Vacancies,
		PublishedAt: requestcontext.Now(ctx),
	}
	for i, r := range ranked {
		outcome := application.StatusWaitingList
		if i < offer.Vacancies {
			outcome = application.StatusAdmitted
		}
		publication.Entries = append(publication.Entries, Entry{
			ApplicationID: r.Application.ID,
			Number:        r.Application.Number,
			FinalScore:    r.FinalScore,
			Rank:          i + 1,
			Outcome:       outcome,
		})
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, entry := range publication.Entries {
			if _, err := s.lifecycle.ApplyResult(ctx, entry.ApplicationID, entry.Outcome); err != nil {
				return fmt.Errorf("apply outcome to %s: %w", entry.Number, err)
			}
		}
		if err := s.store.Save(ctx, publication); err != nil {
			return err
		}
		return s.audit.EmitStrict(ctx, audit.Event{
			Action:   audit.ActionResultsPublished,
			CallID:   callID.String(),
			CareerID: careerID.String(),
			Detail:   fmt.Sprintf("admitted=%d waiting=%d", publication.Admitted(), len(publication.Entries)-publication.Admitted()),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPublication("publish")
	s.metrics.ObserveAdmitted(publication.Admitted())
	s.metrics.ObservePublishLatency(time.Since(started))
	s.logger.InfoContext(ctx, "results published",
		"request_id", requestcontext.RequestID(ctx),
		"call_id", callID,
		"career_id", careerID,
		"ranked", len(publication.Entries),
		"admitted", publication.Admitted(),
	)
	return publication, nil
}

// Close rejects the pair's remaining WAITING_LIST applications and locks
// the pair against further mutation. Requires a prior Publish. An entry
// already REJECTED is settled in place, so a close interrupted between
// lifecycle writes finishes on replay.
func (s *Service) Close(ctx context.Context, callID id.CallID, careerID id.CareerID) (*Publication, error) {
	release, err := s.locker.Acquire(ctx, publishLockKey(callID, careerID), publishLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	publication, err := s.store.Get(ctx, callID, careerID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "results must be published before closing")
		}
		return nil, err
	}
	if publication.Closed() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "results already closed")
	}

	now := requestcontext.Now(ctx)
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for i, entry := range publication.Entries {
			if entry.Outcome != application.StatusWaitingList {
				continue
			}
			current, err := s.lifecycle.Get(ctx, entry.ApplicationID)
			if err != nil {
				return fmt.Errorf("reject %s: %w", entry.Number, err)
			}
			if current.Status != application.StatusRejected {
				if _, err := s.lifecycle.ApplyResult(ctx, entry.ApplicationID, application.StatusRejected); err != nil {
					return fmt.Errorf("reject %s: %w", entry.Number, err)
				}
			}
			publication.Entries[i].Outcome = application.StatusRejected
		}
		publication.ClosedAt = &now
		if err := s.store.Update(ctx, publication); err != nil {
			return err
		}
		return s.audit.EmitStrict(ctx, audit.Event{
			Action:   audit.ActionResultsClosed,
			CallID:   callID.String(),
			CareerID: careerID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementPublication("close")
	s.logger.InfoContext(ctx, "results closed",
		"request_id", requestcontext.RequestID(ctx),
		"call_id", callID,
		"career_id", careerID,
	)
	return publication, nil
}

// Results returns the pair's published snapshot, or a live unranked
// preview when nothing is published yet.
func (s *Service) Results(ctx context.Context, callID id.CallID, careerID id.CareerID) (*Publication, bool, error) {
	if publication, err := s.store.Get(ctx, callID, careerID); err == nil {
		return publication, true, nil
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, false, err
	}

	offer, err := s.offer(ctx, callID, careerID)
	if err != nil {
		return nil, false, err
	}
	ranked, err := s.Rank(ctx, callID, careerID)
	if err != nil {
		return nil, false, err
	}
	preview := &Publication{
		CallID:    callID,
		CareerID:  careerID,
		Vacancies: offer.Vacancies,
	}
	for i, r := range ranked {
		preview.Entries = append(preview.Entries, Entry{
			ApplicationID: r.Application.ID,
			Number:        r.Application.Number,
			FinalScore:    r.FinalScore,
			Rank:          i + 1,
			Outcome:       r.Application.Status,
		})
	}
	return preview, false, nil
}

// Acta submits the pair's admission acta for rendering and returns the
// job handle. Requires published results.
func (s *Service) Acta(ctx context.Context, callID id.CallID, careerID id.CareerID) (id.JobID, error) {
	publication, err := s.store.Get(ctx, callID, careerID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.JobID{}, dErrors.New(dErrors.CodeInvalidState, "results must be published before rendering the acta")
		}
		return id.JobID{}, err
	}
	return s.artifacts.Submit(ctx, "acta", publication)
}

// Dashboard aggregates admission-wide counters for the console landing
// page.
type Dashboard struct {
	OpenCalls         int            `json:"open_calls"`
	TotalApplications int            `json:"total_applications"`
	ByStatus          map[string]int `json:"applications_by_status"`
	PublishedPairs    int            `json:"published_pairs"`
}

// Summary builds the dashboard aggregates across all calls.
func (s *Service) Summary(ctx context.Context) (*Dashboard, error) {
	calls, err := s.calls.ListCalls(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	dash := &Dashboard{ByStatus: make(map[string]int)}
	for _, call := range calls {
		if call.IsOpenForRegistration(now) {
			dash.OpenCalls++
		}
		apps, err := s.lifecycle.ListByCall(ctx, call.ID)
		if err != nil {
			return nil, err
		}
		dash.TotalApplications += len(apps)
		for _, a := range apps {
			dash.ByStatus[string(a.Status)]++
		}
		publications, err := s.store.ListByCall(ctx, call.ID)
		if err != nil {
			return nil, err
		}
		dash.PublishedPairs += len(publications)
	}
	return dash, nil
}

func (s *Service) offer(ctx context.Context, callID id.CallID, careerID id.CareerID) (catalog.CareerOffer, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return catalog.CareerOffer{}, err
	}
	offer, ok := call.Offer(careerID)
	if !ok {
		return catalog.CareerOffer{}, dErrors.Newf(dErrors.CodeNotFound, "career %s is not offered by call %s", careerID, call.Code)
	}
	return offer, nil
}

func publishLockKey(callID id.CallID, careerID id.CareerID) string {
	return fmt.Sprintf("admissio:publish:%s:%s", callID, careerID)
}

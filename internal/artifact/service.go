package artifact

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"admissio/internal/artifact/metrics"
	"admissio/internal/artifact/ports"
	id "admissio/pkg/domain"
	"admissio/pkg/requestcontext"
)

const renderTimeout = 30 * time.Second

// Service runs rendering jobs. Submit returns immediately with a job
// handle; the render happens in the background and Poll reports its
// outcome.
type Service struct {
	store    Store
	renderer ports.RendererPort
	metrics  *metrics.Metrics
	logger   *slog.Logger

	wg sync.WaitGroup
}

func NewService(store Store, renderer ports.RendererPort, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
	}
}

// Submit registers a rendering job and starts it in the background.
func (s *Service) Submit(ctx context.Context, kind string, payload any) (id.JobID, error) {
	job := &Job{
		ID:          id.NewJobID(),
		Kind:        kind,
		Status:      JobStatusPending,
		SubmittedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, job); err != nil {
		return id.JobID{}, err
	}
	s.metrics.IncrementSubmitted(kind)

	// the render outlives the request; only its timeout bounds it
	renderCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.render(renderCtx, job, payload)
	}()
	return job.ID, nil
}

// Poll returns the job's current state.
func (s *Service) Poll(ctx context.Context, jobID id.JobID) (*Job, error) {
	return s.store.GetByID(ctx, jobID)
}

// Wait blocks until every in-flight render has finished. Called on
// shutdown.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) render(ctx context.Context, job *Job, payload any) {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	url, err := s.renderer.Render(ctx, job.Kind, payload)
	now := time.Now().UTC()
	job.CompletedAt = &now
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		s.logger.ErrorContext(ctx, "artifact render failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"error", err,
		)
	} else {
		job.Status = JobStatusReady
		job.ArtifactURL = url
	}

	if err := s.store.Update(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "artifact job update failed", "job_id", job.ID, "error", err)
		return
	}
	s.metrics.IncrementCompleted(string(job.Status))
}

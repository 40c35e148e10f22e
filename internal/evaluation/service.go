package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"admissio/internal/application"
	"admissio/internal/evaluation/metrics"
	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
	"admissio/pkg/platform/audit"
	"admissio/pkg/requestcontext"
)

// Lifecycle is the slice of the application service the engine drives.
type Lifecycle interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*application.Application, error)
	ListByCallAndStatus(ctx context.Context, callID id.CallID, status application.Status) ([]*application.Application, error)
	RecordEvaluation(ctx context.Context, applicationID id.ApplicationID, finalScore float64) (*application.Application, error)
}

// Service is the evaluation engine: iterative raw score entry plus the
// per-call batch compute.
type Service struct {
	store     Store
	lifecycle Lifecycle
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(store Store, lifecycle Lifecycle, auditor *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		lifecycle: lifecycle,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
	}
}

// SetScores upserts raw component scores for an application. The final
// score is not touched; only computeFinal does that. Scores are accepted
// once documents are complete, including after a prior compute.
func (s *Service) SetScores(ctx context.Context, applicationID id.ApplicationID, exam, cv, interview float64) (*Score, error) {
	a, err := s.lifecycle.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.Status != application.StatusDocsComplete && a.Status != application.StatusEvaluated {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"application %s: expected %s, got %s", a.Number, application.StatusDocsComplete, a.Status)
	}

	score := &Score{
		ApplicationID: applicationID,
		Exam:          exam,
		CV:            cv,
		Interview:     interview,
		UpdatedAt:     requestcontext.Now(ctx),
	}
	if err := score.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

// GetScores returns the raw component scores for an application.
func (s *Service) GetScores(ctx context.Context, applicationID id.ApplicationID) (*Score, error) {
	return s.store.GetByApplication(ctx, applicationID)
}

// BatchEntry is one successfully computed application in a batch report.
type BatchEntry struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	Number        string           `json:"application_number"`
	FinalScore    float64          `json:"final_score"`
}

// BatchFailure is one application the batch could not update. The caller
// retries only this subset.
type BatchFailure struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	Number        string           `json:"application_number"`
	Reason        string           `json:"reason"`
}

// BatchReport is the full outcome of one computeFinal run.
type BatchReport struct {
	Evaluated []BatchEntry   `json:"evaluated"`
	Failures  []BatchFailure `json:"failures"`
}

// ComputeFinal computes the weighted final score for every DOCS_COMPLETE
// or EVALUATED application under the call and records each on the
// lifecycle. Applications without stored scores count as zero rather than
// being skipped, so they still appear in rankings. Per-application
// failures are reported alongside the successes, never swallowed.
func (s *Service) ComputeFinal(ctx context.Context, callID id.CallID, weights Weights) (*BatchReport, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if math.Abs(weights.Sum()-1.0) > 1e-9 {
		s.logger.WarnContext(ctx, "rubric weights do not total 1.0",
			"request_id", requestcontext.RequestID(ctx),
			"call_id", callID,
			"sum", weights.Sum(),
		)
	}

	candidates, err := s.lifecycle.ListByCallAndStatus(ctx, callID, application.StatusDocsComplete)
	if err != nil {
		return nil, err
	}
	evaluated, err := s.lifecycle.ListByCallAndStatus(ctx, callID, application.StatusEvaluated)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, evaluated...)
	if len(candidates) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no applications eligible for evaluation")
	}

	report := &BatchReport{}
	for _, a := range candidates {
		final, err := s.finalFor(ctx, a.ID, weights)
		if err == nil {
			_, err = s.lifecycle.RecordEvaluation(ctx, a.ID, final)
		}
		if err != nil {
			report.Failures = append(report.Failures, BatchFailure{
				ApplicationID: a.ID,
				Number:        a.Number,
				Reason:        err.Error(),
			})
			s.metrics.IncrementComputeFailure()
			continue
		}
		report.Evaluated = append(report.Evaluated, BatchEntry{
			ApplicationID: a.ID,
			Number:        a.Number,
			FinalScore:    final,
		})
	}

	s.audit.Emit(ctx, audit.Event{
		Action: audit.ActionEvaluationComputed,
		CallID: callID.String(),
		Detail: fmt.Sprintf("evaluated=%d failed=%d", len(report.Evaluated), len(report.Failures)),
	})
	s.metrics.ObserveBatch(len(report.Evaluated))
	s.logger.InfoContext(ctx, "evaluation batch computed",
		"request_id", requestcontext.RequestID(ctx),
		"call_id", callID,
		"evaluated", len(report.Evaluated),
		"failures", len(report.Failures),
	)
	return report, nil
}

// finalFor resolves an application's final score; no stored scores means
// zero components.
func (s *Service) finalFor(ctx context.Context, applicationID id.ApplicationID, weights Weights) (float64, error) {
	score, err := s.store.GetByApplication(ctx, applicationID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			score = &Score{ApplicationID: applicationID}
		} else {
			return 0, err
		}
	}
	return score.Final(weights), nil
}

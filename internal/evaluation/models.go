// Package evaluation scores applications: raw component entry followed by
// a weighted batch compute that hands final scores to the lifecycle.
package evaluation

import (
	"math"
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// Weights is the rubric applied at compute time. The components are
// expected to total 1.0 but this is not enforced; a skewed rubric is the
// evaluator's call and only draws a warning.
type Weights struct {
	Exam      float64 `json:"exam"`
	CV        float64 `json:"cv"`
	Interview float64 `json:"interview"`
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	if w.Exam < 0 || w.CV < 0 || w.Interview < 0 {
		return dErrors.New(dErrors.CodeValidation, "weights must not be negative")
	}
	return nil
}

// Sum returns the rubric total, for the skew warning.
func (w Weights) Sum() float64 {
	return w.Exam + w.CV + w.Interview
}

// Score holds one application's raw component scores. Finality lives on
// the application; this record is only the compute input.
type Score struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	Exam          float64          `json:"exam"`
	CV            float64          `json:"cv"`
	Interview     float64          `json:"interview"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Validate rejects negative components.
func (s *Score) Validate() error {
	if s.Exam < 0 || s.CV < 0 || s.Interview < 0 {
		return dErrors.New(dErrors.CodeValidation, "component scores must not be negative")
	}
	return nil
}

// Final applies the rubric, rounded to 2 decimals.
func (s *Score) Final(w Weights) float64 {
	return round2(s.Exam*w.Exam + s.CV*w.CV + s.Interview*w.Interview)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

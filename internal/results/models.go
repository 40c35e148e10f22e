// Package results ranks evaluated applications per (call, career) pair and
// allocates vacancies. Publication freezes a ranked snapshot; closure
// rejects whoever is still waiting.
package results

import (
	"time"

	"admissio/internal/application"
	id "admissio/pkg/domain"
)

// Entry is one ranked application in a publication snapshot.
type Entry struct {
	ApplicationID id.ApplicationID   `json:"application_id"`
	Number        string             `json:"application_number"`
	FinalScore    float64            `json:"final_score"`
	Rank          int                `json:"rank"`
	Outcome       application.Status `json:"outcome"`
}

// Publication is the frozen allocation for one (call, career) pair.
//
// Invariants:
//   - entries are ordered by rank, rank is 1-based and dense
//   - ADMITTED entries never exceed the vacancy count captured at publish
//   - once Closed, the pair accepts no further mutation
type Publication struct {
	CallID      id.CallID   `json:"call_id"`
	CareerID    id.CareerID `json:"career_id"`
	Vacancies   int         `json:"vacancies"`
	Entries     []Entry     `json:"entries"`
	PublishedAt time.Time   `json:"published_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
}

// Closed reports whether the pair has been closed.
func (p *Publication) Closed() bool {
	return p.ClosedAt != nil
}

// Admitted counts ADMITTED entries.
func (p *Publication) Admitted() int {
	n := 0
	for _, e := range p.Entries {
		if e.Outcome == application.StatusAdmitted {
			n++
		}
	}
	return n
}

// Package catalog supplies admission call and career facts. The catalog
// itself is maintained by an external administrative system; this module
// only reads it, so there are stores and models but no mutation service.
package catalog

import (
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// CallStatus is the administrative state of an admission call.
type CallStatus string

const (
	CallStatusOpen   CallStatus = "OPEN"
	CallStatusClosed CallStatus = "CLOSED"
)

// CareerOffer is one career offered by a call together with its seat
// count. Vacancies are the scarce resource the results allocator consumes.
type CareerOffer struct {
	CareerID  id.CareerID `json:"career_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Vacancies int         `json:"vacancies"`
}

// AdmissionCall is one admission cycle.
//
// Invariants:
//   - RegistrationStart < RegistrationEnd
//   - Vacancies >= 0 for every offered career
//   - MaxPreferences >= 1
type AdmissionCall struct {
	ID                id.CallID         `json:"id"`
	Code              string            `json:"code"`
	Name              string            `json:"name"`
	AcademicYear      int               `json:"academic_year"`
	AcademicPeriod    string            `json:"academic_period"`
	RegistrationStart time.Time         `json:"registration_start"`
	RegistrationEnd   time.Time         `json:"registration_end"`
	ExamDate          time.Time         `json:"exam_date"`
	ResultsDate       time.Time         `json:"results_date"`
	ApplicationFee    float64           `json:"application_fee"`
	MaxPreferences    int               `json:"max_applications_per_career"`
	MinimumAge        *int              `json:"minimum_age,omitempty"`
	MaximumAge        *int              `json:"maximum_age,omitempty"`
	RequiredDocuments []id.DocumentType `json:"required_documents"`
	Careers           []CareerOffer     `json:"careers"`
	Status            CallStatus        `json:"status"`
}

// Validate checks the call invariants. Stores run it on seed/load so a
// broken catalog row is rejected instead of silently served.
func (c *AdmissionCall) Validate() error {
	if c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "call id is required")
	}
	if !c.RegistrationStart.Before(c.RegistrationEnd) {
		return dErrors.New(dErrors.CodeInvariantViolation, "registration window start must precede end")
	}
	if c.MaxPreferences < 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max applications per career must be at least 1")
	}
	for _, offer := range c.Careers {
		if offer.Vacancies < 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "career %s has negative vacancies", offer.CareerID)
		}
	}
	return nil
}

// IsOpenForRegistration reports whether applications are accepted at now.
// The window is half-open: [start, end).
func (c *AdmissionCall) IsOpenForRegistration(now time.Time) bool {
	if c.Status != CallStatusOpen {
		return false
	}
	return !now.Before(c.RegistrationStart) && now.Before(c.RegistrationEnd)
}

// Offer returns the career offer for careerID, if the call offers it.
func (c *AdmissionCall) Offer(careerID id.CareerID) (CareerOffer, bool) {
	for _, offer := range c.Careers {
		if offer.CareerID == careerID {
			return offer, true
		}
	}
	return CareerOffer{}, false
}

// Requires reports whether the call requires the given document type.
func (c *AdmissionCall) Requires(t id.DocumentType) bool {
	for _, req := range c.RequiredDocuments {
		if req == t {
			return true
		}
	}
	return false
}

// Params are the global admission defaults. They back-fill calls that
// leave age bounds or required documents unset.
type Params struct {
	MinimumAge        *int              `json:"minimum_age,omitempty"`
	MaximumAge        *int              `json:"maximum_age,omitempty"`
	RequiredDocuments []id.DocumentType `json:"required_documents"`
}

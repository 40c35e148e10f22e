// Package applicant owns the natural-person profile. One profile per
// person, reused across admission calls.
package applicant

import (
	"strings"
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// Applicant is one natural person who may apply across calls.
//
// Invariants:
//   - NationalID is non-empty and unique across all applicants
//   - Subject links the profile to the identity collaborator's account
type Applicant struct {
	ID         id.ApplicantID `json:"id"`
	Subject    string         `json:"-"`
	NationalID string         `json:"national_id"`
	FullName   string         `json:"full_name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone,omitempty"`
	BirthDate  time.Time      `json:"birth_date"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewApplicant validates and constructs a profile.
func NewApplicant(applicantID id.ApplicantID, subject, nationalID, fullName, email, phone string, birthDate, now time.Time) (*Applicant, error) {
	nationalID = strings.TrimSpace(nationalID)
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant subject is required")
	}
	if nationalID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "national document number is required")
	}
	if len(nationalID) > 12 {
		return nil, dErrors.New(dErrors.CodeValidation, "national document number must be at most 12 characters")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "valid email is required")
	}
	if birthDate.IsZero() || !birthDate.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "birth date must be in the past")
	}

	return &Applicant{
		ID:         applicantID,
		Subject:    subject,
		NationalID: nationalID,
		FullName:   fullName,
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		BirthDate:  birthDate,
		CreatedAt:  now,
	}, nil
}

// AgeAt returns the applicant's age in whole years at the given instant.
func (a *Applicant) AgeAt(now time.Time) int {
	age := now.Year() - a.BirthDate.Year()
	anniversary := time.Date(now.Year(), a.BirthDate.Month(), a.BirthDate.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		age--
	}
	return age
}

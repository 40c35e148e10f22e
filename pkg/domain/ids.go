// Package domain holds shared domain primitives: typed identifiers and
// small value types used across modules. Constructing them through the
// Parse helpers enforces validity at trust boundaries; direct casting
// bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "admissio/pkg/domain-errors"
)

// Typed identifiers. Wrapping uuid.UUID keeps call sites honest about
// which entity an ID refers to; mixing them up is a compile error.
type (
	ApplicantID   uuid.UUID
	ApplicationID uuid.UUID
	CallID        uuid.UUID
	CareerID      uuid.UUID
	PaymentID     uuid.UUID
	DocumentID    uuid.UUID
	JobID         uuid.UUID
)

func NewApplicantID() ApplicantID     { return ApplicantID(uuid.New()) }
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }
func NewPaymentID() PaymentID         { return PaymentID(uuid.New()) }
func NewDocumentID() DocumentID       { return DocumentID(uuid.New()) }
func NewJobID() JobID                 { return JobID(uuid.New()) }

func (id ApplicantID) String() string   { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id CallID) String() string        { return uuid.UUID(id).String() }
func (id CareerID) String() string      { return uuid.UUID(id).String() }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id JobID) String() string         { return uuid.UUID(id).String() }

func (id ApplicantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CallID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CareerID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id JobID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }

// Text marshaling renders IDs as canonical UUID strings in JSON bodies
// and stored payloads.

func (id ApplicantID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CallID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id CareerID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id PaymentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id JobID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }

func (id *ApplicantID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = ApplicantID(u)
	return err
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = ApplicationID(u)
	return err
}

func (id *CallID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = CallID(u)
	return err
}

func (id *CareerID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = CareerID(u)
	return err
}

func (id *PaymentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = PaymentID(u)
	return err
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = DocumentID(u)
	return err
}

func (id *JobID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = JobID(u)
	return err
}

// ParseApplicantID constructs an ApplicantID from external input.
func ParseApplicantID(s string) (ApplicantID, error) {
	u, err := parseID(s, "applicant id")
	return ApplicantID(u), err
}

// ParseApplicationID constructs an ApplicationID from external input.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseID(s, "application id")
	return ApplicationID(u), err
}

// ParseCallID constructs a CallID from external input.
func ParseCallID(s string) (CallID, error) {
	u, err := parseID(s, "call id")
	return CallID(u), err
}

// ParseCareerID constructs a CareerID from external input.
func ParseCareerID(s string) (CareerID, error) {
	u, err := parseID(s, "career id")
	return CareerID(u), err
}

// ParsePaymentID constructs a PaymentID from external input.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseID(s, "payment id")
	return PaymentID(u), err
}

// ParseDocumentID constructs a DocumentID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseID(s, "document id")
	return DocumentID(u), err
}

// ParseJobID constructs a JobID from external input.
func ParseJobID(s string) (JobID, error) {
	u, err := parseID(s, "job id")
	return JobID(u), err
}

func parseID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+what)
	}
	return u, nil
}

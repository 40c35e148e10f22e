// Package domainerrors defines the error taxonomy shared by all modules.
// Services attach a Code to every error they return; the HTTP layer maps
// codes to status codes in one place (httputil.WriteError) so handlers
// never hand-pick statuses.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and programmatic checks.
type Code string

const (
	// CodeValidation covers malformed or out-of-range input: bad
	// preferences, age out of bounds, unparsable IDs.
	CodeValidation Code = "validation_error"

	// CodeBadRequest covers structurally broken requests (missing body,
	// undecodable JSON) as opposed to domain-level validation.
	CodeBadRequest Code = "bad_request"

	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"

	// CodeConflict covers uniqueness clashes (duplicate national document
	// number, duplicate application per call).
	CodeConflict Code = "conflict"

	// CodeInvalidState marks an operation that is illegal for the current
	// lifecycle, payment, or publication state. The message names the
	// expected versus actual state.
	CodeInvalidState Code = "invalid_state"

	// CodeDuplicateApplication: the applicant already holds a non-rejected
	// application for the call.
	CodeDuplicateApplication Code = "duplicate_application"

	// CodeAlreadyPaid: the application already has a PAID payment.
	CodeAlreadyPaid Code = "already_paid"

	// CodeInvariantViolation marks a broken internal invariant; surfaced
	// as a conflict because the caller's view of the world is stale.
	CodeInvariantViolation Code = "invariant_violation"

	CodeInternal Code = "internal_error"
	CodeTimeout  Code = "timeout"
)

// Error is the concrete error type carried across module boundaries.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a domain error with a code and caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.err
		if err == nil {
			break
		}
	}
	return false
}

// Is allows comparing against a bare *Error by code.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// ToHTTPStatus maps an error code to the HTTP status the transport layer
// should emit. Unknown codes degrade to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidState, CodeInvariantViolation,
		CodeDuplicateApplication, CodeAlreadyPaid:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

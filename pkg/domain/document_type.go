package domain

import (
	"strings"

	dErrors "admissio/pkg/domain-errors"
)

// DocumentType identifies a kind of document an admission call requires,
// e.g. "DNI_COPY" or "PHOTO". The set of valid types is defined per call,
// not globally, so parsing only normalizes and bounds the value; membership
// in a call's required set is checked by the document review engine.
type DocumentType string

// ParseDocumentType normalizes external input into a DocumentType.
//
// Errors: returns CodeValidation when the value is empty, too long, or
// contains characters outside [A-Z0-9_] after normalization.
func ParseDocumentType(s string) (DocumentType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "document type is required")
	}
	if len(s) > 60 {
		return "", dErrors.New(dErrors.CodeValidation, "document type must be at most 60 characters")
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return "", dErrors.New(dErrors.CodeValidation, "document type may only contain letters, digits and underscores")
		}
	}
	return DocumentType(s), nil
}

func (t DocumentType) String() string { return string(t) }

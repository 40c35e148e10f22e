// Package document is the review engine for uploaded admission documents:
// a per-document approval state machine plus the completion check that
// moves an application to DOCS_COMPLETE once every required type is
// approved.
package document

import (
	"time"

	id "admissio/pkg/domain"
	dErrors "admissio/pkg/domain-errors"
)

// ReviewStatus is the approval state of a document.
type ReviewStatus string

const (
	// StatusUploaded means awaiting review; re-uploads reset to it.
	StatusUploaded ReviewStatus = "UPLOADED"
	StatusApproved ReviewStatus = "APPROVED"
	StatusRejected ReviewStatus = "REJECTED"
	// StatusObserved means returned with remarks; the applicant may
	// re-upload or the reviewer may re-review.
	StatusObserved ReviewStatus = "OBSERVED"
)

// ParseReviewOutcome validates a review verdict. UPLOADED is not a verdict;
// it is only ever set by uploads.
func ParseReviewOutcome(s string) (ReviewStatus, error) {
	switch ReviewStatus(s) {
	case StatusApproved, StatusRejected, StatusObserved:
		return ReviewStatus(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "review status must be APPROVED, REJECTED or OBSERVED")
}

// Document is one required-document slot of an application. There is at
// most one per (application, type); re-uploading replaces the content and
// resets the review.
type Document struct {
	ID            id.DocumentID    `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Type          id.DocumentType  `json:"document_type"`
	StorageURL    string           `json:"storage_url"`
	ReviewStatus  ReviewStatus     `json:"review_status"`
	Observations  string           `json:"observations,omitempty"`
	ReviewerID    string           `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty"`
	UploadedAt    time.Time        `json:"uploaded_at"`
}

// ResetUpload replaces the stored content and clears any prior review.
func (d *Document) ResetUpload(storageURL string, at time.Time) {
	d.StorageURL = storageURL
	d.ReviewStatus = StatusUploaded
	d.Observations = ""
	d.ReviewerID = ""
	d.ReviewedAt = nil
	d.UploadedAt = at
}

// ApplyReview records a verdict. Any state accepts a new verdict; an
// OBSERVED or REJECTED document may be approved later without re-upload.
func (d *Document) ApplyReview(outcome ReviewStatus, observations, reviewer string, at time.Time) error {
	if reviewer == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "reviewer identity required")
	}
	d.ReviewStatus = outcome
	d.Observations = observations
	d.ReviewerID = reviewer
	d.ReviewedAt = &at
	return nil
}

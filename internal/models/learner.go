package models

import "time"

// LearnerStatus represents the lifecycle of a learner within a cohort.
type LearnerStatus string

const (
	LearnerStatusEnrolled  LearnerStatus = "ENROLLED"
	LearnerStatusActive    LearnerStatus = "ACTIVE"
	LearnerStatusDeferred  LearnerStatus = "DEFERRED"
	LearnerStatusWithdrawn LearnerStatus = "WITHDRAWN"
	LearnerStatusCompleted LearnerStatus = "COMPLETED"
	LearnerStatusFailed    LearnerStatus = "FAILED"
)

// Valid returns true when the status is a supported value.
func (s LearnerStatus) Valid() bool {
	switch s {
	case LearnerStatusEnrolled, LearnerStatusActive, LearnerStatusDeferred,
		LearnerStatusWithdrawn, LearnerStatusCompleted, LearnerStatusFailed:
		return true
	default:
		return false
	}
}

// Learner is a person enrolled in a cohort. Withdrawal is a soft delete; the
// row only disappears on an explicit admin override.
type Learner struct {
	ID          string        `db:"id" json:"id"`
	CohortID    string        `db:"cohort_id" json:"cohort_id"`
	FullName    string        `db:"full_name" json:"full_name"`
	Email       string        `db:"email" json:"email"`
	Phone       *string       `db:"phone" json:"phone,omitempty"`
	ExternalRef *string       `db:"external_ref" json:"external_ref,omitempty"`
	Status      LearnerStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// LearnerDisplay is the compact projection used when enriching reviews.
type LearnerDisplay struct {
	ID       string        `db:"id" json:"id"`
	FullName string        `db:"full_name" json:"full_name"`
	Email    string        `db:"email" json:"email"`
	Status   LearnerStatus `db:"status" json:"status"`
}

// LearnerFilter scopes learner listing queries.
type LearnerFilter struct {
	CohortID  string
	Status    LearnerStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

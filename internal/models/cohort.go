package models

import "time"

// CohortStatus represents the lifecycle of a cohort.
type CohortStatus string

const (
	CohortStatusDraft      CohortStatus = "DRAFT"
	CohortStatusScheduled  CohortStatus = "SCHEDULED"
	CohortStatusInProgress CohortStatus = "IN_PROGRESS"
	CohortStatusCompleted  CohortStatus = "COMPLETED"
	CohortStatusCancelled  CohortStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s CohortStatus) Valid() bool {
	switch s {
	case CohortStatusDraft, CohortStatusScheduled, CohortStatusInProgress, CohortStatusCompleted, CohortStatusCancelled:
		return true
	default:
		return false
	}
}

// InstructorRole tags an instructor's responsibility within a cohort.
type InstructorRole string

const (
	InstructorRoleLead      InstructorRole = "LEAD"
	InstructorRoleAssistant InstructorRole = "ASSISTANT"
)

// Valid returns true when the role is a supported value.
func (r InstructorRole) Valid() bool {
	return r == InstructorRoleLead || r == InstructorRoleAssistant
}

// Cohort is a scheduled delivery of a course to a group of learners.
type Cohort struct {
	ID          string       `db:"id" json:"id"`
	CourseID    string       `db:"course_id" json:"course_id"`
	Name        string       `db:"name" json:"name"`
	MaxLearners int          `db:"max_learners" json:"max_learners"`
	Status      CohortStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// InstructorAssignment links an instructor to a cohort with a role tag.
type InstructorAssignment struct {
	ID        string         `db:"id" json:"id"`
	CohortID  string         `db:"cohort_id" json:"cohort_id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Role      InstructorRole `db:"role" json:"role"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// CohortFilter scopes cohort listing queries.
type CohortFilter struct {
	CourseID     string
	Status       CohortStatus
	InstructorID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

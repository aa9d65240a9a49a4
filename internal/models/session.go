package models

import "time"

// SessionStatus represents the delivery state of a scheduled session.
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Session is one scheduled delivery of a lesson within a cohort on a specific
// date. At most one session may exist per (cohort, lesson, calendar day).
type Session struct {
	ID          string        `db:"id" json:"id"`
	CohortID    string        `db:"cohort_id" json:"cohort_id"`
	LessonID    string        `db:"lesson_id" json:"lesson_id"`
	ScheduledAt time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status      SessionStatus `db:"status" json:"status"`
	ActualStart *time.Time    `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd   *time.Time    `db:"actual_end" json:"actual_end,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	CohortID  string
	LessonID  string
	Status    SessionStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

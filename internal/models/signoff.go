package models

import (
	"time"

	"github.com/lib/pq"
)

// SignoffStatus represents the competency-evidence state for one criterion.
//
// The engine deliberately allows any status to be set from any other; the
// forward chain NOT_STARTED, IN_PROGRESS, SUBMITTED, then SIGNED_OFF or
// REQUIRES_REVISION, then VERIFIED is guided by the UI, not enforced here.
type SignoffStatus string

const (
	SignoffStatusNotStarted       SignoffStatus = "NOT_STARTED"
	SignoffStatusInProgress       SignoffStatus = "IN_PROGRESS"
	SignoffStatusSubmitted        SignoffStatus = "SUBMITTED"
	SignoffStatusSignedOff        SignoffStatus = "SIGNED_OFF"
	SignoffStatusRequiresRevision SignoffStatus = "REQUIRES_REVISION"
	SignoffStatusVerified         SignoffStatus = "VERIFIED"
)

// Valid returns true when the status is a supported value.
func (s SignoffStatus) Valid() bool {
	switch s {
	case SignoffStatusNotStarted, SignoffStatusInProgress, SignoffStatusSubmitted,
		SignoffStatusSignedOff, SignoffStatusRequiresRevision, SignoffStatusVerified:
		return true
	default:
		return false
	}
}

// Stamped reports whether the status carries a sign-off timestamp and actor.
func (s SignoffStatus) Stamped() bool {
	return s == SignoffStatusSignedOff || s == SignoffStatusVerified
}

// Audited reports whether a single update to this status is audit-logged.
// Routine in-progress edits are skipped to keep the audit trail readable.
func (s SignoffStatus) Audited() bool {
	return s == SignoffStatusSignedOff || s == SignoffStatusVerified || s == SignoffStatusRequiresRevision
}

// AssessmentSignoff records competency evidence for one (learner, lesson,
// criterion code) triple. CriterionText is a denormalized copy kept for audit
// stability even if the source criterion text later changes.
type AssessmentSignoff struct {
	ID            string         `db:"id" json:"id"`
	LearnerID     string         `db:"learner_id" json:"learner_id"`
	LessonID      string         `db:"lesson_id" json:"lesson_id"`
	CriterionCode string         `db:"criterion_code" json:"criterion_code"`
	CriterionText string         `db:"criterion_text" json:"criterion_text"`
	Status        SignoffStatus  `db:"status" json:"status"`
	EvidenceNotes *string        `db:"evidence_notes" json:"evidence_notes,omitempty"`
	EvidenceFiles pq.StringArray `db:"evidence_files" json:"evidence_files,omitempty"`
	SignedOffAt   *time.Time     `db:"signed_off_at" json:"signed_off_at,omitempty"`
	SignedOffBy   *string        `db:"signed_off_by" json:"signed_off_by,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// AssessmentSignoffDetail extends the signoff with learner context.
type AssessmentSignoffDetail struct {
	AssessmentSignoff
	LearnerName string `db:"learner_name" json:"learner_name"`
}

// SignoffFilter scopes signoff listing queries to a cohort.
type SignoffFilter struct {
	CohortID      string
	LearnerID     string
	LessonID      string
	Status        *SignoffStatus
	CriterionCode string
}

// SignoffStats aggregates record counts by status.
type SignoffStats struct {
	NotStarted       int `json:"not_started"`
	InProgress       int `json:"in_progress"`
	Submitted        int `json:"submitted"`
	SignedOff        int `json:"signed_off"`
	RequiresRevision int `json:"requires_revision"`
	Verified         int `json:"verified"`
	Total            int `json:"total"`
}

// Add accumulates counts for a status into the stats.
func (s *SignoffStats) Add(status SignoffStatus, count int) {
	switch status {
	case SignoffStatusNotStarted:
		s.NotStarted += count
	case SignoffStatusInProgress:
		s.InProgress += count
	case SignoffStatusSubmitted:
		s.Submitted += count
	case SignoffStatusSignedOff:
		s.SignedOff += count
	case SignoffStatusRequiresRevision:
		s.RequiresRevision += count
	case SignoffStatusVerified:
		s.Verified += count
	}
	s.Total += count
}

// LearnerSignoffGroup maps one learner to their criterion records, feeding
// the matrix-style review view.
type LearnerSignoffGroup struct {
	LearnerID   string              `json:"learner_id"`
	LearnerName string              `json:"learner_name"`
	Records     []AssessmentSignoff `json:"records"`
}

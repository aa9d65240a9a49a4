package models

import (
	"time"

	"github.com/lib/pq"
)

// IqaSampleStatus represents the review state of an IQA sample.
// ACTION_REQUIRED is reachable from any state.
type IqaSampleStatus string

const (
	IqaSampleStatusPlanned        IqaSampleStatus = "PLANNED"
	IqaSampleStatusInProgress     IqaSampleStatus = "IN_PROGRESS"
	IqaSampleStatusCompleted      IqaSampleStatus = "COMPLETED"
	IqaSampleStatusActionRequired IqaSampleStatus = "ACTION_REQUIRED"
)

// Valid returns true when the status is a supported value.
func (s IqaSampleStatus) Valid() bool {
	switch s {
	case IqaSampleStatusPlanned, IqaSampleStatusInProgress, IqaSampleStatusCompleted, IqaSampleStatusActionRequired:
		return true
	default:
		return false
	}
}

// IqaSample is a quality-assurance review unit auditing a subset of signoff
// decisions within a cohort. CompletedAt is stamped on the first transition
// into COMPLETED and never re-stamped.
type IqaSample struct {
	ID            string          `db:"id" json:"id"`
	CohortID      string          `db:"cohort_id" json:"cohort_id"`
	SamplePeriod  string          `db:"sample_period" json:"sample_period"`
	LearnerIDs    pq.StringArray  `db:"learner_ids" json:"learner_ids"`
	CriteriaCodes pq.StringArray  `db:"criteria_codes" json:"criteria_codes"`
	Status        IqaSampleStatus `db:"status" json:"status"`
	Findings      *string         `db:"findings" json:"findings,omitempty"`
	ActionPoints  *string         `db:"action_points" json:"action_points,omitempty"`
	ReviewerID    *string         `db:"reviewer_id" json:"reviewer_id,omitempty"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// IqaSampleDetail enriches a sample with resolved learners and the signoff
// records in (sample learners x sample criteria) for the reviewer.
type IqaSampleDetail struct {
	IqaSample
	Learners []LearnerDisplay    `json:"learners"`
	Signoffs []AssessmentSignoff `json:"signoffs"`
}

package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCohortCreate      = "COHORT_CREATE"
	AuditActionCohortUpdate      = "COHORT_UPDATE"
	AuditActionCohortDelete      = "COHORT_DELETE"
	AuditActionLearnerEnroll     = "LEARNER_ENROLL"
	AuditActionLearnerUpdate     = "LEARNER_UPDATE"
	AuditActionLearnerWithdraw   = "LEARNER_WITHDRAW"
	AuditActionLearnerHardDelete = "LEARNER_HARD_DELETE"
	AuditActionSessionCreate     = "SESSION_CREATE"
	AuditActionSessionUpdate     = "SESSION_UPDATE"
	AuditActionAttendanceBulk    = "ATTENDANCE_BULK_MARK"
	AuditActionSignoffUpsert     = "SIGNOFF_UPSERT"
	AuditActionSignoffBulk       = "SIGNOFF_BULK_UPSERT"
	AuditActionIqaSampleCreate   = "IQA_SAMPLE_CREATE"
	AuditActionIqaSampleUpdate   = "IQA_SAMPLE_UPDATE"
	AuditActionIqaSampleDelete   = "IQA_SAMPLE_DELETE"
)

// AuditLog is an immutable audit trail record. Entries are append-only;
// nothing in this service updates or deletes them.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *string   `db:"entity_id" json:"entity_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter scopes audit log listing (admin-only reads).
type AuditLogFilter struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Page       int
	PageSize   int
}

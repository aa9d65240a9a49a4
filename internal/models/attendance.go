package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
	AttendanceStatusPartial AttendanceStatus = "PARTIAL"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent,
		AttendanceStatusExcused, AttendanceStatusPartial:
		return true
	default:
		return false
	}
}

// Counted reports whether the status counts toward the attendance rate
// numerator.
func (s AttendanceStatus) Counted() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// AttendanceRecord is one (session, learner) mark. Re-marking overwrites the
// prior status and recorder; no history of earlier marks is kept.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	SessionID  string           `db:"session_id" json:"session_id"`
	LearnerID  string           `db:"learner_id" json:"learner_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	ArrivedAt  *time.Time       `db:"arrived_at" json:"arrived_at,omitempty"`
	RecordedBy string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecordDetail extends the record with learner and session context.
type AttendanceRecordDetail struct {
	AttendanceRecord
	LearnerName   string        `db:"learner_name" json:"learner_name"`
	LessonID      string        `db:"lesson_id" json:"lesson_id"`
	SessionStatus SessionStatus `db:"session_status" json:"session_status"`
	ScheduledAt   time.Time     `db:"scheduled_at" json:"scheduled_at"`
}

// AttendanceFilter scopes attendance listing queries to a cohort.
type AttendanceFilter struct {
	CohortID  string
	SessionID string
	LearnerID string
	Status    *AttendanceStatus
}

// AttendanceStats aggregates record counts by status.
type AttendanceStats struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	Excused int `json:"excused"`
	Partial int `json:"partial"`
	Total   int `json:"total"`
}

// Add accumulates a single record into the stats.
func (s *AttendanceStats) Add(status AttendanceStatus, count int) {
	switch status {
	case AttendanceStatusPresent:
		s.Present += count
	case AttendanceStatusLate:
		s.Late += count
	case AttendanceStatusAbsent:
		s.Absent += count
	case AttendanceStatusExcused:
		s.Excused += count
	case AttendanceStatusPartial:
		s.Partial += count
	}
	s.Total += count
}

// AttendanceRate is the derived per-learner rate. Rate is nil when the
// learner has no records against completed sessions yet; nil means
// "no rate yet", which is distinct from a 0% rate.
type AttendanceRate struct {
	LearnerID string   `json:"learner_id"`
	Attended  int      `json:"attended"`
	Completed int      `json:"completed"`
	Rate      *float64 `json:"rate"`
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillbase/cohort-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func attendanceWhere(filter models.AttendanceFilter) (string, []interface{}) {
	where := []string{"l.cohort_id = $1"}
	args := []interface{}{filter.CohortID}
	if filter.SessionID != "" {
		where = append(where, fmt.Sprintf("a.session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.LearnerID != "" {
		where = append(where, fmt.Sprintf("a.learner_id = $%d", len(args)+1))
		args = append(args, filter.LearnerID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	return strings.Join(where, " AND "), args
}

// List returns attendance records for a cohort with learner and session
// context attached.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, error) {
	whereClause, args := attendanceWhere(filter)
	query := fmt.Sprintf(`SELECT a.id, a.session_id, a.learner_id, a.status, a.arrived_at, a.recorded_by, a.created_at, a.updated_at,
        l.full_name AS learner_name, s.lesson_id, s.status AS session_status, s.scheduled_at
        FROM attendance_records a
        JOIN learners l ON l.id = a.learner_id
        JOIN sessions s ON s.id = a.session_id
        WHERE %s
        ORDER BY s.scheduled_at, l.full_name`, whereClause)

	var rows []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// Stats aggregates record counts by status for the filtered set.
func (r *AttendanceRepository) Stats(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceStats, error) {
	whereClause, args := attendanceWhere(filter)
	query := fmt.Sprintf(`SELECT a.status, COUNT(*) AS cnt
        FROM attendance_records a
        JOIN learners l ON l.id = a.learner_id
        WHERE %s
        GROUP BY a.status`, whereClause)

	rows := []struct {
		Status models.AttendanceStatus `db:"status"`
		Count  int                     `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance stats: %w", err)
	}
	stats := &models.AttendanceStats{}
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

// Rates computes the derived attendance rate per learner. Only records whose
// session has completed participate; learners without such records produce no
// row, which callers surface as an undefined rate.
func (r *AttendanceRepository) Rates(ctx context.Context, cohortID, learnerID string) ([]models.AttendanceRate, error) {
	where := []string{"l.cohort_id = $1", "s.status = $2"}
	args := []interface{}{cohortID, models.SessionStatusCompleted}
	if learnerID != "" {
		where = append(where, fmt.Sprintf("a.learner_id = $%d", len(args)+1))
		args = append(args, learnerID)
	}
	query := fmt.Sprintf(`SELECT a.learner_id,
        COUNT(*) FILTER (WHERE a.status IN ($%d, $%d)) AS attended,
        COUNT(*) AS completed
        FROM attendance_records a
        JOIN learners l ON l.id = a.learner_id
        JOIN sessions s ON s.id = a.session_id
        WHERE %s
        GROUP BY a.learner_id`, len(args)+1, len(args)+2, strings.Join(where, " AND "))
	args = append(args, models.AttendanceStatusPresent, models.AttendanceStatusLate)

	rows := []struct {
		LearnerID string `db:"learner_id"`
		Attended  int    `db:"attended"`
		Completed int    `db:"completed"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance rates: %w", err)
	}

	rates := make([]models.AttendanceRate, 0, len(rows))
	for _, row := range rows {
		rate := models.AttendanceRate{LearnerID: row.LearnerID, Attended: row.Attended, Completed: row.Completed}
		if row.Completed > 0 {
			value := float64(row.Attended) / float64(row.Completed) * 100
			rate.Rate = &value
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

const attendanceUpsertQuery = `INSERT INTO attendance_records (id, session_id, learner_id, status, arrived_at, recorded_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (session_id, learner_id)
DO UPDATE SET status = EXCLUDED.status, arrived_at = EXCLUDED.arrived_at, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
RETURNING id, session_id, learner_id, status, arrived_at, recorded_by, created_at, updated_at`

// Upsert inserts or overwrites the mark for one (session, learner) pair.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, attendanceUpsertQuery,
		record.ID, record.SessionID, record.LearnerID, record.Status, record.ArrivedAt, record.RecordedBy, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// BulkUpsert applies all records inside one transaction. Membership checks
// happen in the service before this call; any failure here rolls everything
// back.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	stored := make([]models.AttendanceRecord, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		if err := tx.GetContext(ctx, &stored[i], attendanceUpsertQuery,
			rec.ID, rec.SessionID, rec.LearnerID, rec.Status, rec.ArrivedAt, rec.RecordedBy, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("bulk upsert attendance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	committed = true
	return stored, nil
}

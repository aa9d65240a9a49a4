package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillbase/cohort-api/internal/models"
)

// SessionRepository handles persistence for scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, cohort_id, lesson_id, scheduled_at, status, actual_start, actual_end, created_at, updated_at`

// List returns sessions for a cohort matching the filter.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	where := []string{"cohort_id = $1"}
	args := []interface{}{filter.CohortID}
	if filter.LessonID != "" {
		where = append(where, fmt.Sprintf("lesson_id = $%d", len(args)+1))
		args = append(args, filter.LessonID)
	}
	if filter.Status != "" && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("scheduled_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY scheduled_at %s LIMIT %d OFFSET %d`,
		sessionColumns, whereClause, order, size, offset)

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ExistsForLessonOnDate reports whether a session already exists for the
// (cohort, lesson, calendar day) triple.
func (r *SessionRepository) ExistsForLessonOnDate(ctx context.Context, cohortID, lessonID string, day time.Time, excludeID string) (bool, error) {
	query := `SELECT 1 FROM sessions WHERE cohort_id = $1 AND lesson_id = $2 AND scheduled_at::date = $3::date`
	args := []interface{}{cohortID, lessonID, day}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check session uniqueness: %w", err)
	}
	return true, nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusScheduled
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO sessions (id, cohort_id, lesson_id, scheduled_at, status, actual_start, actual_end, created_at, updated_at)
        VALUES (:id, :cohort_id, :lesson_id, :scheduled_at, :status, :actual_start, :actual_end, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update persists session mutations including status and actual timestamps.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET scheduled_at = :scheduled_at, status = :status,
        actual_start = :actual_start, actual_end = :actual_end, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

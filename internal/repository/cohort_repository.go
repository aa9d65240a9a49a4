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

// CohortRepository handles persistence for cohorts and instructor assignments.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository constructs the repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

// List returns cohorts matching the provided filter.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.InstructorID != "" {
		where = append(where, fmt.Sprintf("id IN (SELECT cohort_id FROM instructor_assignments WHERE user_id = $%d)", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":       "name",
		"status":     "status",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, course_id, name, max_learners, status, created_at, updated_at
FROM cohorts WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, whereClause, sortColumn, order, size, offset)

	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cohorts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM cohorts WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cohorts: %w", err)
	}
	return cohorts, total, nil
}

// FindByID returns a cohort by its ID.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	const query = `SELECT id, course_id, name, max_learners, status, created_at, updated_at FROM cohorts WHERE id = $1`
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		return nil, err
	}
	return &cohort, nil
}

// Create persists a new cohort.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	now := time.Now().UTC()
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	if cohort.Status == "" {
		cohort.Status = models.CohortStatusDraft
	}
	cohort.CreatedAt = now
	cohort.UpdatedAt = now
	const query = `INSERT INTO cohorts (id, course_id, name, max_learners, status, created_at, updated_at)
        VALUES (:id, :course_id, :name, :max_learners, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// Update persists cohort mutations.
func (r *CohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	cohort.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cohorts SET name = :name, max_learners = :max_learners, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("update cohort: %w", err)
	}
	return nil
}

// Delete removes a cohort row.
func (r *CohortRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cohorts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	return nil
}

// CountLearners counts learner rows still attached to the cohort, including
// withdrawn ones. The delete guard counts every row on purpose.
func (r *CohortRepository) CountLearners(ctx context.Context, cohortID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM learners WHERE cohort_id = $1`, cohortID); err != nil {
		return 0, fmt.Errorf("count cohort learners: %w", err)
	}
	return count, nil
}

// IsInstructorAssigned reports whether an assignment row links the instructor
// to the cohort.
func (r *CohortRepository) IsInstructorAssigned(ctx context.Context, userID, cohortID string) (bool, error) {
	const query = `SELECT 1 FROM instructor_assignments WHERE user_id = $1 AND cohort_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, cohortID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor assignment: %w", err)
	}
	return true, nil
}

// ListInstructors returns the instructor assignments for a cohort.
func (r *CohortRepository) ListInstructors(ctx context.Context, cohortID string) ([]models.InstructorAssignment, error) {
	const query = `SELECT id, cohort_id, user_id, role, created_at FROM instructor_assignments WHERE cohort_id = $1 ORDER BY created_at`
	var assignments []models.InstructorAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, cohortID); err != nil {
		return nil, fmt.Errorf("list instructor assignments: %w", err)
	}
	return assignments, nil
}

// AssignInstructor links an instructor to a cohort, updating the role tag on
// re-assignment.
func (r *CohortRepository) AssignInstructor(ctx context.Context, assignment *models.InstructorAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO instructor_assignments (id, cohort_id, user_id, role, created_at)
        VALUES (:id, :cohort_id, :user_id, :role, :created_at)
        ON CONFLICT (cohort_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("assign instructor: %w", err)
	}
	return nil
}

// UnassignInstructor removes an instructor's assignment from a cohort.
func (r *CohortRepository) UnassignInstructor(ctx context.Context, userID, cohortID string) error {
	const query = `DELETE FROM instructor_assignments WHERE user_id = $1 AND cohort_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, cohortID); err != nil {
		return fmt.Errorf("unassign instructor: %w", err)
	}
	return nil
}

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

// LearnerRepository handles persistence for learners.
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository constructs the repository.
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

const learnerColumns = `id, cohort_id, full_name, email, phone, external_ref, status, created_at, updated_at`

// List returns learners for a cohort matching the filter.
func (r *LearnerRepository) List(ctx context.Context, filter models.LearnerFilter) ([]models.Learner, int, error) {
	where := []string{"cohort_id = $1"}
	args := []interface{}{filter.CohortID}
	if filter.Status != "" && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"status":     "status",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "full_name"
	}
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

	query := fmt.Sprintf(`SELECT %s FROM learners WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		learnerColumns, whereClause, sortColumn, order, size, offset)

	var learners []models.Learner
	if err := r.db.SelectContext(ctx, &learners, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list learners: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM learners WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count learners: %w", err)
	}
	return learners, total, nil
}

// FindByID returns a learner by its ID.
func (r *LearnerRepository) FindByID(ctx context.Context, id string) (*models.Learner, error) {
	query := fmt.Sprintf(`SELECT %s FROM learners WHERE id = $1`, learnerColumns)
	var learner models.Learner
	if err := r.db.GetContext(ctx, &learner, query, id); err != nil {
		return nil, err
	}
	return &learner, nil
}

// EmailExists reports whether another learner in the cohort already uses the
// email address.
func (r *LearnerRepository) EmailExists(ctx context.Context, cohortID, email, excludeID string) (bool, error) {
	query := `SELECT 1 FROM learners WHERE cohort_id = $1 AND LOWER(email) = LOWER($2)`
	args := []interface{}{cohortID, email}
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
		return false, fmt.Errorf("check learner email: %w", err)
	}
	return true, nil
}

// Create persists a new learner.
func (r *LearnerRepository) Create(ctx context.Context, learner *models.Learner) error {
	now := time.Now().UTC()
	if learner.ID == "" {
		learner.ID = uuid.NewString()
	}
	if learner.Status == "" {
		learner.Status = models.LearnerStatusEnrolled
	}
	learner.CreatedAt = now
	learner.UpdatedAt = now
	const query = `INSERT INTO learners (id, cohort_id, full_name, email, phone, external_ref, status, created_at, updated_at)
        VALUES (:id, :cohort_id, :full_name, :email, :phone, :external_ref, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, learner); err != nil {
		return fmt.Errorf("create learner: %w", err)
	}
	return nil
}

// Update persists learner mutations.
func (r *LearnerRepository) Update(ctx context.Context, learner *models.Learner) error {
	learner.UpdatedAt = time.Now().UTC()
	const query = `UPDATE learners SET full_name = :full_name, email = :email, phone = :phone,
        external_ref = :external_ref, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, learner); err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	return nil
}

// UpdateStatus transitions a learner's lifecycle status.
func (r *LearnerRepository) UpdateStatus(ctx context.Context, id string, status models.LearnerStatus) error {
	const query = `UPDATE learners SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update learner status: %w", err)
	}
	return nil
}

// HardDelete removes a learner row. Admin override only.
func (r *LearnerRepository) HardDelete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM learners WHERE id = $1`, id); err != nil {
		return fmt.Errorf("hard delete learner: %w", err)
	}
	return nil
}

// MembersOfCohort returns which of the provided learner IDs belong to the
// cohort. Callers compare against the input set to find strays.
func (r *LearnerRepository) MembersOfCohort(ctx context.Context, cohortID string, learnerIDs []string) (map[string]bool, error) {
	if len(learnerIDs) == 0 {
		return map[string]bool{}, nil
	}
	const chunkSize = 100
	members := make(map[string]bool, len(learnerIDs))
	for start := 0; start < len(learnerIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(learnerIDs) {
			end = len(learnerIDs)
		}
		chunk := learnerIDs[start:end]
		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, cohortID)
		for i, id := range chunk {
			placeholders[i] = fmt.Sprintf("$%d", i+2)
			args = append(args, id)
		}
		query := fmt.Sprintf("SELECT id FROM learners WHERE cohort_id = $1 AND id IN (%s)", strings.Join(placeholders, ","))
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("check cohort membership: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan learner id: %w", err)
			}
			members[id] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate cohort membership: %w", err)
		}
		rows.Close()
	}
	return members, nil
}

// DisplayByIDs resolves compact learner projections for the given IDs.
func (r *LearnerRepository) DisplayByIDs(ctx context.Context, ids []string) ([]models.LearnerDisplay, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, full_name, email, status FROM learners WHERE id IN (?) ORDER BY full_name`, ids)
	if err != nil {
		return nil, fmt.Errorf("build learner display query: %w", err)
	}
	query = r.db.Rebind(query)
	var displays []models.LearnerDisplay
	if err := r.db.SelectContext(ctx, &displays, query, args...); err != nil {
		return nil, fmt.Errorf("resolve learner displays: %w", err)
	}
	return displays, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillbase/cohort-api/internal/models"
)

// IqaRepository handles persistence for IQA samples.
type IqaRepository struct {
	db *sqlx.DB
}

// NewIqaRepository constructs the repository.
func NewIqaRepository(db *sqlx.DB) *IqaRepository {
	return &IqaRepository{db: db}
}

const iqaColumns = `id, cohort_id, sample_period, learner_ids, criteria_codes, status, findings, action_points,
        reviewer_id, completed_at, created_at, updated_at`

// ListByCohort returns all samples for a cohort, newest first.
func (r *IqaRepository) ListByCohort(ctx context.Context, cohortID string) ([]models.IqaSample, error) {
	query := fmt.Sprintf(`SELECT %s FROM iqa_samples WHERE cohort_id = $1 ORDER BY created_at DESC`, iqaColumns)
	var samples []models.IqaSample
	if err := r.db.SelectContext(ctx, &samples, query, cohortID); err != nil {
		return nil, fmt.Errorf("list iqa samples: %w", err)
	}
	return samples, nil
}

// FindByID returns a sample by its ID.
func (r *IqaRepository) FindByID(ctx context.Context, id string) (*models.IqaSample, error) {
	query := fmt.Sprintf(`SELECT %s FROM iqa_samples WHERE id = $1`, iqaColumns)
	var sample models.IqaSample
	if err := r.db.GetContext(ctx, &sample, query, id); err != nil {
		return nil, err
	}
	return &sample, nil
}

// Create persists a new sample.
func (r *IqaRepository) Create(ctx context.Context, sample *models.IqaSample) error {
	now := time.Now().UTC()
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Status == "" {
		sample.Status = models.IqaSampleStatusPlanned
	}
	sample.CreatedAt = now
	sample.UpdatedAt = now
	const query = `INSERT INTO iqa_samples (id, cohort_id, sample_period, learner_ids, criteria_codes, status,
        findings, action_points, reviewer_id, completed_at, created_at, updated_at)
        VALUES (:id, :cohort_id, :sample_period, :learner_ids, :criteria_codes, :status,
        :findings, :action_points, :reviewer_id, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("create iqa sample: %w", err)
	}
	return nil
}

// Update persists sample mutations.
func (r *IqaRepository) Update(ctx context.Context, sample *models.IqaSample) error {
	sample.UpdatedAt = time.Now().UTC()
	const query = `UPDATE iqa_samples SET status = :status, findings = :findings, action_points = :action_points,
        reviewer_id = :reviewer_id, completed_at = :completed_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("update iqa sample: %w", err)
	}
	return nil
}

// Delete removes a sample row.
func (r *IqaRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM iqa_samples WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete iqa sample: %w", err)
	}
	return nil
}

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

// SignoffRepository handles persistence for assessment signoffs.
type SignoffRepository struct {
	db *sqlx.DB
}

// NewSignoffRepository constructs the repository.
func NewSignoffRepository(db *sqlx.DB) *SignoffRepository {
	return &SignoffRepository{db: db}
}

func signoffWhere(filter models.SignoffFilter) (string, []interface{}) {
	where := []string{"l.cohort_id = $1"}
	args := []interface{}{filter.CohortID}
	if filter.LearnerID != "" {
		where = append(where, fmt.Sprintf("a.learner_id = $%d", len(args)+1))
		args = append(args, filter.LearnerID)
	}
	if filter.LessonID != "" {
		where = append(where, fmt.Sprintf("a.lesson_id = $%d", len(args)+1))
		args = append(args, filter.LessonID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.CriterionCode != "" {
		where = append(where, fmt.Sprintf("a.criterion_code = $%d", len(args)+1))
		args = append(args, filter.CriterionCode)
	}
	return strings.Join(where, " AND "), args
}

const signoffColumns = `a.id, a.learner_id, a.lesson_id, a.criterion_code, a.criterion_text, a.status,
        a.evidence_notes, a.evidence_files, a.signed_off_at, a.signed_off_by, a.created_at, a.updated_at`

// List returns signoff records for a cohort with learner names attached.
func (r *SignoffRepository) List(ctx context.Context, filter models.SignoffFilter) ([]models.AssessmentSignoffDetail, error) {
	whereClause, args := signoffWhere(filter)
	query := fmt.Sprintf(`SELECT %s, l.full_name AS learner_name
        FROM assessment_signoffs a
        JOIN learners l ON l.id = a.learner_id
        WHERE %s
        ORDER BY l.full_name, a.lesson_id, a.criterion_code`, signoffColumns, whereClause)

	var rows []models.AssessmentSignoffDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list signoffs: %w", err)
	}
	return rows, nil
}

// Stats aggregates record counts by status for the filtered set.
func (r *SignoffRepository) Stats(ctx context.Context, filter models.SignoffFilter) (*models.SignoffStats, error) {
	whereClause, args := signoffWhere(filter)
	query := fmt.Sprintf(`SELECT a.status, COUNT(*) AS cnt
        FROM assessment_signoffs a
        JOIN learners l ON l.id = a.learner_id
        WHERE %s
        GROUP BY a.status`, whereClause)

	rows := []struct {
		Status models.SignoffStatus `db:"status"`
		Count  int                  `db:"cnt"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("signoff stats: %w", err)
	}
	stats := &models.SignoffStats{}
	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}

const signoffUpsertQuery = `INSERT INTO assessment_signoffs (id, learner_id, lesson_id, criterion_code, criterion_text, status,
        evidence_notes, evidence_files, signed_off_at, signed_off_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (learner_id, lesson_id, criterion_code)
DO UPDATE SET criterion_text = EXCLUDED.criterion_text, status = EXCLUDED.status,
        evidence_notes = EXCLUDED.evidence_notes, evidence_files = EXCLUDED.evidence_files,
        signed_off_at = EXCLUDED.signed_off_at, signed_off_by = EXCLUDED.signed_off_by,
        updated_at = EXCLUDED.updated_at
RETURNING id, learner_id, lesson_id, criterion_code, criterion_text, status,
        evidence_notes, evidence_files, signed_off_at, signed_off_by, created_at, updated_at`

// Upsert inserts or overwrites the record for one (learner, lesson,
// criterion code) triple.
func (r *SignoffRepository) Upsert(ctx context.Context, record *models.AssessmentSignoff) (*models.AssessmentSignoff, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	var stored models.AssessmentSignoff
	if err := r.db.GetContext(ctx, &stored, signoffUpsertQuery,
		record.ID, record.LearnerID, record.LessonID, record.CriterionCode, record.CriterionText, record.Status,
		record.EvidenceNotes, record.EvidenceFiles, record.SignedOffAt, record.SignedOffBy, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert signoff: %w", err)
	}
	return &stored, nil
}

// BulkUpsert applies all records inside one transaction so a mid-batch
// failure leaves nothing applied.
func (r *SignoffRepository) BulkUpsert(ctx context.Context, records []models.AssessmentSignoff) ([]models.AssessmentSignoff, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk signoff: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	stored := make([]models.AssessmentSignoff, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		if err := tx.GetContext(ctx, &stored[i], signoffUpsertQuery,
			rec.ID, rec.LearnerID, rec.LessonID, rec.CriterionCode, rec.CriterionText, rec.Status,
			rec.EvidenceNotes, rec.EvidenceFiles, rec.SignedOffAt, rec.SignedOffBy, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("bulk upsert signoff: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk signoff: %w", err)
	}
	committed = true
	return stored, nil
}

// ListForSample returns the signoff records in the cross product of the
// sample's learners and criterion codes.
func (r *SignoffRepository) ListForSample(ctx context.Context, learnerIDs, criteriaCodes []string) ([]models.AssessmentSignoff, error) {
	if len(learnerIDs) == 0 || len(criteriaCodes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, learner_id, lesson_id, criterion_code, criterion_text, status,
        evidence_notes, evidence_files, signed_off_at, signed_off_by, created_at, updated_at
        FROM assessment_signoffs
        WHERE learner_id IN (?) AND criterion_code IN (?)
        ORDER BY learner_id, criterion_code`, learnerIDs, criteriaCodes)
	if err != nil {
		return nil, fmt.Errorf("build sample signoff query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.AssessmentSignoff
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sample signoffs: %w", err)
	}
	return rows, nil
}

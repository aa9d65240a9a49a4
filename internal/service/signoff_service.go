package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type signoffRepository interface {
	List(ctx context.Context, filter models.SignoffFilter) ([]models.AssessmentSignoffDetail, error)
	Stats(ctx context.Context, filter models.SignoffFilter) (*models.SignoffStats, error)
	Upsert(ctx context.Context, record *models.AssessmentSignoff) (*models.AssessmentSignoff, error)
	BulkUpsert(ctx context.Context, records []models.AssessmentSignoff) ([]models.AssessmentSignoff, error)
}

// SignoffService manages the assessment sign-off matrix: one record per
// (learner, lesson, criterion code) triple.
type SignoffService struct {
	repo      signoffRepository
	learners  membershipReader
	access    accessGuard
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSignoffService constructs the sign-off service.
func NewSignoffService(repo signoffRepository, learners membershipReader, access accessGuard, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SignoffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SignoffService{repo: repo, learners: learners, access: access, audit: audit, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("signoff_status", func(fl validator.FieldLevel) bool {
		return models.SignoffStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// ListSignoffsRequest carries filters for listing sign-offs.
type ListSignoffsRequest struct {
	LearnerID     string  `json:"learner_id"`
	LessonID      string  `json:"lesson_id"`
	CriterionCode string  `json:"criterion_code"`
	Status        *string `json:"status" validate:"omitempty,signoff_status"`
}

// UpsertSignoffRequest creates or replaces one sign-off record.
type UpsertSignoffRequest struct {
	LearnerID     string   `json:"learner_id" validate:"required"`
	LessonID      string   `json:"lesson_id" validate:"required"`
	CriterionCode string   `json:"criterion_code" validate:"required"`
	CriterionText string   `json:"criterion_text" validate:"required"`
	Status        string   `json:"status" validate:"required,signoff_status"`
	EvidenceNotes *string  `json:"evidence_notes"`
	EvidenceFiles []string `json:"evidence_files"`
}

// BulkUpsertSignoffsRequest applies many sign-off upserts in one transaction.
type BulkUpsertSignoffsRequest struct {
	Records []UpsertSignoffRequest `json:"records" validate:"required,min=1,dive"`
}

// SignoffListResult bundles flat records with per-status counts and the
// by-learner grouping the review matrix renders from.
type SignoffListResult struct {
	Records   []models.AssessmentSignoffDetail `json:"records"`
	Stats     *models.SignoffStats             `json:"stats"`
	ByLearner []models.LearnerSignoffGroup     `json:"by_learner"`
}

// List returns the cohort's sign-off records with aggregates. The second
// return reports whether the result came from cache.
func (s *SignoffService) List(ctx context.Context, claims *models.JWTClaims, cohortID string, req ListSignoffsRequest) (*SignoffListResult, bool, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, false, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.SignoffFilter{
		CohortID:      cohortID,
		LearnerID:     req.LearnerID,
		LessonID:      req.LessonID,
		CriterionCode: req.CriterionCode,
	}
	if req.Status != nil {
		status := models.SignoffStatus(strings.ToUpper(*req.Status))
		filter.Status = &status
	}

	cacheKey := fmt.Sprintf("signoffs:%s:%s:%s:%s:%s", cohortID, req.LearnerID, req.LessonID, req.CriterionCode, strings.ToUpper(stringOrEmpty(req.Status)))
	var cached SignoffListResult
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sign-offs")
	}
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate sign-offs")
	}

	result := &SignoffListResult{Records: records, Stats: stats, ByLearner: groupByLearner(records)}
	_ = s.cache.Set(ctx, cacheKey, result, 0)
	return result, false, nil
}

// Upsert creates or replaces a sign-off for one criterion. SIGNED_OFF and
// VERIFIED stamp the acting user and time; every other status clears the
// stamp. Only decisive statuses are audited.
func (s *SignoffService) Upsert(ctx context.Context, claims *models.JWTClaims, cohortID string, req UpsertSignoffRequest) (*models.AssessmentSignoff, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.checkMembership(ctx, cohortID, []string{req.LearnerID}); err != nil {
		return nil, err
	}

	record := s.buildRecord(claims, req)
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sign-off")
	}

	if stored.Status.Audited() {
		s.audit.Record(ctx, claims, models.AuditActionSignoffUpsert, "signoff", stored.ID, map[string]interface{}{
			"learner_id":     stored.LearnerID,
			"lesson_id":      stored.LessonID,
			"criterion_code": stored.CriterionCode,
			"status":         stored.Status,
		})
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("signoffs:%s:*", cohortID))
	return stored, nil
}

// BulkUpsert applies a batch of sign-offs atomically. Membership of every
// learner is validated first; one stray learner rejects the whole batch.
// Bulk writes are always audited with per-status counts.
func (s *SignoffService) BulkUpsert(ctx context.Context, claims *models.JWTClaims, cohortID string, req BulkUpsertSignoffsRequest) ([]models.AssessmentSignoff, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	seen := map[string]struct{}{}
	learnerSet := map[string]struct{}{}
	learnerIDs := make([]string, 0, len(req.Records))
	for _, item := range req.Records {
		key := item.LearnerID + "|" + item.LessonID + "|" + item.CriterionCode
		if _, ok := seen[key]; ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate criterion entry in payload")
		}
		seen[key] = struct{}{}
		if _, ok := learnerSet[item.LearnerID]; !ok {
			learnerSet[item.LearnerID] = struct{}{}
			learnerIDs = append(learnerIDs, item.LearnerID)
		}
	}
	if err := s.checkMembership(ctx, cohortID, learnerIDs); err != nil {
		return nil, err
	}

	records := make([]models.AssessmentSignoff, len(req.Records))
	for i, item := range req.Records {
		records[i] = *s.buildRecord(claims, item)
	}
	stored, err := s.repo.BulkUpsert(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk sign-off failed")
	}

	statusCounts := models.SignoffStats{}
	for _, rec := range stored {
		statusCounts.Add(rec.Status, 1)
	}
	s.audit.Record(ctx, claims, models.AuditActionSignoffBulk, "cohort", cohortID, map[string]interface{}{
		"total":             statusCounts.Total,
		"not_started":       statusCounts.NotStarted,
		"in_progress":       statusCounts.InProgress,
		"submitted":         statusCounts.Submitted,
		"signed_off":        statusCounts.SignedOff,
		"requires_revision": statusCounts.RequiresRevision,
		"verified":          statusCounts.Verified,
	})

	_ = s.cache.Invalidate(ctx, fmt.Sprintf("signoffs:%s:*", cohortID))
	return stored, nil
}

func (s *SignoffService) buildRecord(claims *models.JWTClaims, req UpsertSignoffRequest) *models.AssessmentSignoff {
	record := &models.AssessmentSignoff{
		LearnerID:     req.LearnerID,
		LessonID:      req.LessonID,
		CriterionCode: req.CriterionCode,
		CriterionText: req.CriterionText,
		Status:        models.SignoffStatus(strings.ToUpper(req.Status)),
		EvidenceNotes: req.EvidenceNotes,
		EvidenceFiles: req.EvidenceFiles,
	}
	if record.Status.Stamped() {
		now := time.Now().UTC()
		record.SignedOffAt = &now
		record.SignedOffBy = &claims.UserID
	}
	return record
}

func (s *SignoffService) checkMembership(ctx context.Context, cohortID string, learnerIDs []string) error {
	members, err := s.learners.MembersOfCohort(ctx, cohortID, learnerIDs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate cohort membership")
	}
	var strays int
	for _, id := range learnerIDs {
		if !members[id] {
			strays++
		}
	}
	if strays == 0 {
		return nil
	}
	if len(learnerIDs) == 1 {
		return appErrors.Clone(appErrors.ErrNotFound, "learner does not belong to this cohort")
	}
	return appErrors.Clone(appErrors.ErrBatchRejected, fmt.Sprintf("%d learner(s) do not belong to this cohort", strays))
}

func groupByLearner(records []models.AssessmentSignoffDetail) []models.LearnerSignoffGroup {
	index := map[string]int{}
	groups := []models.LearnerSignoffGroup{}
	for _, rec := range records {
		i, ok := index[rec.LearnerID]
		if !ok {
			i = len(groups)
			index[rec.LearnerID] = i
			groups = append(groups, models.LearnerSignoffGroup{LearnerID: rec.LearnerID, LearnerName: rec.LearnerName})
		}
		groups[i].Records = append(groups[i].Records, rec.AssessmentSignoff)
	}
	return groups
}

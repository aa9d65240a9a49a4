package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type iqaRepository interface {
	ListByCohort(ctx context.Context, cohortID string) ([]models.IqaSample, error)
	FindByID(ctx context.Context, id string) (*models.IqaSample, error)
	Create(ctx context.Context, sample *models.IqaSample) error
	Update(ctx context.Context, sample *models.IqaSample) error
	Delete(ctx context.Context, id string) error
}

type rosterReader interface {
	MembersOfCohort(ctx context.Context, cohortID string, learnerIDs []string) (map[string]bool, error)
	DisplayByIDs(ctx context.Context, ids []string) ([]models.LearnerDisplay, error)
}

type sampleSignoffReader interface {
	ListForSample(ctx context.Context, learnerIDs, criteriaCodes []string) ([]models.AssessmentSignoff, error)
}

// IqaService manages internal quality assurance samples: reviewer-audited
// subsets of the cohort's sign-off decisions.
type IqaService struct {
	repo      iqaRepository
	learners  rosterReader
	signoffs  sampleSignoffReader
	access    accessGuard
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewIqaService constructs the IQA service.
func NewIqaService(repo iqaRepository, learners rosterReader, signoffs sampleSignoffReader, access accessGuard, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *IqaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &IqaService{repo: repo, learners: learners, signoffs: signoffs, access: access, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	svc.validator.RegisterValidation("iqa_status", func(fl validator.FieldLevel) bool {
		return models.IqaSampleStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// CreateIqaSampleRequest plans a new sample.
type CreateIqaSampleRequest struct {
	SamplePeriod  string   `json:"sample_period" validate:"required,min=2,max=100"`
	LearnerIDs    []string `json:"learner_ids" validate:"required,min=1,dive,required"`
	CriteriaCodes []string `json:"criteria_codes" validate:"required,min=1,dive,required"`
}

// UpdateIqaSampleRequest progresses a sample. Nil fields are left as is.
type UpdateIqaSampleRequest struct {
	Status       *string `json:"status" validate:"omitempty,iqa_status"`
	Findings     *string `json:"findings"`
	ActionPoints *string `json:"action_points"`
	ReviewerID   *string `json:"reviewer_id"`
}

// List returns the cohort's samples, newest first.
func (s *IqaService) List(ctx context.Context, claims *models.JWTClaims, cohortID string) ([]models.IqaSample, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	samples, err := s.repo.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list samples")
	}
	return samples, nil
}

// Get returns one sample enriched with its learner display rows and the
// sign-off records in (sample learners x sample criteria).
func (s *IqaService) Get(ctx context.Context, claims *models.JWTClaims, cohortID, sampleID string) (*models.IqaSampleDetail, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	sample, err := s.findInCohort(ctx, cohortID, sampleID)
	if err != nil {
		return nil, err
	}
	learners, err := s.learners.DisplayByIDs(ctx, sample.LearnerIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample learners")
	}
	signoffs, err := s.signoffs.ListForSample(ctx, sample.LearnerIDs, sample.CriteriaCodes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample sign-offs")
	}
	return &models.IqaSampleDetail{IqaSample: *sample, Learners: learners, Signoffs: signoffs}, nil
}

// Create plans a sample. Every sampled learner must belong to the cohort.
func (s *IqaService) Create(ctx context.Context, claims *models.JWTClaims, cohortID string, req CreateIqaSampleRequest) (*models.IqaSample, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	members, err := s.learners.MembersOfCohort(ctx, cohortID, req.LearnerIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate cohort membership")
	}
	for _, id := range req.LearnerIDs {
		if !members[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "sample includes learners outside this cohort")
		}
	}
	sample := &models.IqaSample{
		CohortID:      cohortID,
		SamplePeriod:  req.SamplePeriod,
		LearnerIDs:    req.LearnerIDs,
		CriteriaCodes: req.CriteriaCodes,
		Status:        models.IqaSampleStatusPlanned,
	}
	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sample")
	}
	s.audit.Record(ctx, claims, models.AuditActionIqaSampleCreate, "iqa_sample", sample.ID, map[string]interface{}{
		"cohort_id":     cohortID,
		"sample_period": sample.SamplePeriod,
		"learner_count": len(sample.LearnerIDs),
	})
	return sample, nil
}

// Update progresses a sample through review. The first transition into
// COMPLETED stamps completed_at; later edits never re-stamp it.
func (s *IqaService) Update(ctx context.Context, claims *models.JWTClaims, cohortID, sampleID string, req UpdateIqaSampleRequest) (*models.IqaSample, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	sample, err := s.findInCohort(ctx, cohortID, sampleID)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if req.Findings != nil {
		sample.Findings = req.Findings
		changes["findings"] = true
	}
	if req.ActionPoints != nil {
		sample.ActionPoints = req.ActionPoints
		changes["action_points"] = true
	}
	if req.ReviewerID != nil {
		sample.ReviewerID = req.ReviewerID
		changes["reviewer_id"] = *req.ReviewerID
	}
	if req.Status != nil {
		next := models.IqaSampleStatus(strings.ToUpper(*req.Status))
		if next != sample.Status {
			if next == models.IqaSampleStatusCompleted && sample.CompletedAt == nil {
				now := s.now()
				sample.CompletedAt = &now
				changes["completed_at"] = now
			}
			sample.Status = next
			changes["status"] = next
		}
	}
	if len(changes) == 0 {
		return sample, nil
	}
	if err := s.repo.Update(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sample")
	}
	s.audit.Record(ctx, claims, models.AuditActionIqaSampleUpdate, "iqa_sample", sample.ID, changes)
	return sample, nil
}

// Delete removes a sample. Admin only, even for assigned instructors.
func (s *IqaService) Delete(ctx context.Context, claims *models.JWTClaims, cohortID, sampleID string) error {
	if err := s.access.RequireAdmin(claims); err != nil {
		return err
	}
	sample, err := s.findInCohort(ctx, cohortID, sampleID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, sampleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sample")
	}
	s.audit.Record(ctx, claims, models.AuditActionIqaSampleDelete, "iqa_sample", sampleID, map[string]interface{}{
		"cohort_id":     cohortID,
		"sample_period": sample.SamplePeriod,
	})
	return nil
}

func (s *IqaService) findInCohort(ctx context.Context, cohortID, sampleID string) (*models.IqaSample, error) {
	sample, err := s.repo.FindByID(ctx, sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	if sample.CohortID != cohortID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
	}
	return sample, nil
}

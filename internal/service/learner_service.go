package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type learnerRepository interface {
	List(ctx context.Context, filter models.LearnerFilter) ([]models.Learner, int, error)
	FindByID(ctx context.Context, id string) (*models.Learner, error)
	EmailExists(ctx context.Context, cohortID, email, excludeID string) (bool, error)
	Create(ctx context.Context, learner *models.Learner) error
	Update(ctx context.Context, learner *models.Learner) error
	UpdateStatus(ctx context.Context, id string, status models.LearnerStatus) error
	HardDelete(ctx context.Context, id string) error
}

// LearnerService manages the cohort roster. Withdrawal is the soft delete;
// removing the row entirely is an admin override.
type LearnerService struct {
	repo      learnerRepository
	access    accessGuard
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLearnerService constructs the learner service.
func NewLearnerService(repo learnerRepository, access accessGuard, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *LearnerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &LearnerService{repo: repo, access: access, audit: audit, validator: validate, logger: logger}
	svc.validator.RegisterValidation("learner_status", func(fl validator.FieldLevel) bool {
		return models.LearnerStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// ListLearnersRequest carries filters for the roster listing.
type ListLearnersRequest struct {
	Status    *string `json:"status" validate:"omitempty,learner_status"`
	Search    string  `json:"search"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

// EnrollLearnerRequest enrolls a learner into a cohort.
type EnrollLearnerRequest struct {
	FullName    string  `json:"full_name" validate:"required,min=2,max=150"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
	ExternalRef *string `json:"external_ref" validate:"omitempty,max=100"`
}

// UpdateLearnerRequest updates learner details. Nil fields are left as is.
type UpdateLearnerRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=2,max=150"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
	ExternalRef *string `json:"external_ref" validate:"omitempty,max=100"`
	Status      *string `json:"status" validate:"omitempty,learner_status"`
}

// List returns the cohort's learners.
func (s *LearnerService) List(ctx context.Context, claims *models.JWTClaims, cohortID string, req ListLearnersRequest) ([]models.Learner, *models.Pagination, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.LearnerFilter{
		CohortID:  cohortID,
		Search:    req.Search,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		filter.Status = models.LearnerStatus(strings.ToUpper(*req.Status))
	}
	learners, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list learners")
	}
	return learners, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one learner scoped to the cohort.
func (s *LearnerService) Get(ctx context.Context, claims *models.JWTClaims, cohortID, learnerID string) (*models.Learner, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	return s.findInCohort(ctx, cohortID, learnerID)
}

// Enroll adds a learner to the cohort. Email must be unique within the
// cohort, case-insensitively.
func (s *LearnerService) Enroll(ctx context.Context, claims *models.JWTClaims, cohortID string, req EnrollLearnerRequest) (*models.Learner, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	exists, err := s.repo.EmailExists(ctx, cohortID, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a learner with this email already exists in the cohort")
	}
	learner := &models.Learner{
		CohortID:    cohortID,
		FullName:    req.FullName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		ExternalRef: req.ExternalRef,
		Status:      models.LearnerStatusEnrolled,
	}
	if err := s.repo.Create(ctx, learner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll learner")
	}
	s.audit.Record(ctx, claims, models.AuditActionLearnerEnroll, "learner", learner.ID, map[string]interface{}{
		"cohort_id": cohortID,
		"email":     learner.Email,
	})
	return learner, nil
}

// Update edits learner details or moves their lifecycle status.
func (s *LearnerService) Update(ctx context.Context, claims *models.JWTClaims, cohortID, learnerID string, req UpdateLearnerRequest) (*models.Learner, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	learner, err := s.findInCohort(ctx, cohortID, learnerID)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != learner.Email {
			exists, err := s.repo.EmailExists(ctx, cohortID, email, learner.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrConflict, "a learner with this email already exists in the cohort")
			}
			learner.Email = email
			changes["email"] = email
		}
	}
	if req.FullName != nil {
		learner.FullName = *req.FullName
		changes["full_name"] = *req.FullName
	}
	if req.Phone != nil {
		learner.Phone = req.Phone
		changes["phone"] = *req.Phone
	}
	if req.ExternalRef != nil {
		learner.ExternalRef = req.ExternalRef
		changes["external_ref"] = *req.ExternalRef
	}
	if req.Status != nil {
		learner.Status = models.LearnerStatus(strings.ToUpper(*req.Status))
		changes["status"] = learner.Status
	}
	if len(changes) == 0 {
		return learner, nil
	}
	if err := s.repo.Update(ctx, learner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update learner")
	}
	s.audit.Record(ctx, claims, models.AuditActionLearnerUpdate, "learner", learner.ID, changes)
	return learner, nil
}

// Withdraw soft-deletes a learner by moving them to WITHDRAWN. Their
// attendance and sign-off history stays intact.
func (s *LearnerService) Withdraw(ctx context.Context, claims *models.JWTClaims, cohortID, learnerID string) error {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return err
	}
	learner, err := s.findInCohort(ctx, cohortID, learnerID)
	if err != nil {
		return err
	}
	if learner.Status == models.LearnerStatusWithdrawn {
		return appErrors.Clone(appErrors.ErrConflict, "learner is already withdrawn")
	}
	if err := s.repo.UpdateStatus(ctx, learnerID, models.LearnerStatusWithdrawn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw learner")
	}
	s.audit.Record(ctx, claims, models.AuditActionLearnerWithdraw, "learner", learnerID, map[string]interface{}{
		"cohort_id": cohortID,
	})
	return nil
}

// HardDelete removes the learner row entirely. Admin only.
func (s *LearnerService) HardDelete(ctx context.Context, claims *models.JWTClaims, cohortID, learnerID string) error {
	if err := s.access.RequireAdmin(claims); err != nil {
		return err
	}
	learner, err := s.findInCohort(ctx, cohortID, learnerID)
	if err != nil {
		return err
	}
	if err := s.repo.HardDelete(ctx, learnerID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete learner")
	}
	s.audit.Record(ctx, claims, models.AuditActionLearnerHardDelete, "learner", learnerID, map[string]interface{}{
		"cohort_id": cohortID,
		"email":     learner.Email,
	})
	return nil
}

func (s *LearnerService) findInCohort(ctx context.Context, cohortID, learnerID string) (*models.Learner, error) {
	learner, err := s.repo.FindByID(ctx, learnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learner")
	}
	if learner.CohortID != cohortID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found")
	}
	return learner, nil
}

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

type cohortRepository interface {
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error)
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, cohort *models.Cohort) error
	Delete(ctx context.Context, id string) error
	CountLearners(ctx context.Context, cohortID string) (int, error)
	ListInstructors(ctx context.Context, cohortID string) ([]models.InstructorAssignment, error)
	AssignInstructor(ctx context.Context, assignment *models.InstructorAssignment) error
	UnassignInstructor(ctx context.Context, userID, cohortID string) error
}

// CohortService manages cohort lifecycle and instructor assignments.
// Creation, deletion, and instructor assignment are admin concerns; metadata
// edits and reads go through the cohort access gate like everything else.
type CohortService struct {
	repo      cohortRepository
	access    accessGuard
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCohortService constructs the cohort service.
func NewCohortService(repo cohortRepository, access accessGuard, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CohortService{repo: repo, access: access, audit: audit, validator: validate, logger: logger}
	svc.validator.RegisterValidation("cohort_status", func(fl validator.FieldLevel) bool {
		return models.CohortStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("instructor_role", func(fl validator.FieldLevel) bool {
		return models.InstructorRole(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// ListCohortsRequest carries filters for the cohort collection.
type ListCohortsRequest struct {
	CourseID  string  `json:"course_id"`
	Status    *string `json:"status" validate:"omitempty,cohort_status"`
	Page      int     `json:"page"`
	PageSize  int     `json:"page_size"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

// CreateCohortRequest creates a cohort.
type CreateCohortRequest struct {
	CourseID    string  `json:"course_id" validate:"required"`
	Name        string  `json:"name" validate:"required,min=2,max=150"`
	MaxLearners int     `json:"max_learners" validate:"required,min=1,max=500"`
	Status      *string `json:"status" validate:"omitempty,cohort_status"`
}

// UpdateCohortRequest updates cohort metadata. Nil fields are left as is.
type UpdateCohortRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=150"`
	MaxLearners *int    `json:"max_learners" validate:"omitempty,min=1,max=500"`
	Status      *string `json:"status" validate:"omitempty,cohort_status"`
}

// AssignInstructorRequest assigns an instructor to a cohort.
type AssignInstructorRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,instructor_role"`
}

// CohortDetail is a cohort enriched with its instructor roster and current
// learner count.
type CohortDetail struct {
	models.Cohort
	Instructors  []models.InstructorAssignment `json:"instructors"`
	LearnerCount int                           `json:"learner_count"`
}

// List returns cohorts visible to the caller. Admin tiers see everything;
// instructors see only cohorts they are assigned to.
func (s *CohortService) List(ctx context.Context, claims *models.JWTClaims, req ListCohortsRequest) ([]models.Cohort, *models.Pagination, error) {
	if claims == nil || claims.UserID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.CohortFilter{
		CourseID:  req.CourseID,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		filter.Status = models.CohortStatus(strings.ToUpper(*req.Status))
	}
	switch {
	case claims.Role.IsAdminTier():
	case claims.Role == models.RoleInstructor:
		filter.InstructorID = claims.UserID
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role may not access cohort data")
	}

	cohorts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	return cohorts, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one cohort with its instructor roster and learner count.
func (s *CohortService) Get(ctx context.Context, claims *models.JWTClaims, cohortID string) (*CohortDetail, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	cohort, err := s.findCohort(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	instructors, err := s.repo.ListInstructors(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	count, err := s.repo.CountLearners(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count learners")
	}
	return &CohortDetail{Cohort: *cohort, Instructors: instructors, LearnerCount: count}, nil
}

// Create creates a cohort. Admin only.
func (s *CohortService) Create(ctx context.Context, claims *models.JWTClaims, req CreateCohortRequest) (*models.Cohort, error) {
	if err := s.access.RequireAdmin(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	cohort := &models.Cohort{
		CourseID:    req.CourseID,
		Name:        req.Name,
		MaxLearners: req.MaxLearners,
		Status:      models.CohortStatusDraft,
	}
	if req.Status != nil {
		cohort.Status = models.CohortStatus(strings.ToUpper(*req.Status))
	}
	if err := s.repo.Create(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}
	s.audit.Record(ctx, claims, models.AuditActionCohortCreate, "cohort", cohort.ID, map[string]interface{}{
		"name":      cohort.Name,
		"course_id": cohort.CourseID,
	})
	return cohort, nil
}

// Update updates cohort metadata. Admins and assigned instructors may edit.
func (s *CohortService) Update(ctx context.Context, claims *models.JWTClaims, cohortID string, req UpdateCohortRequest) (*models.Cohort, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	cohort, err := s.findCohort(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{}
	if req.Name != nil {
		cohort.Name = *req.Name
		changes["name"] = *req.Name
	}
	if req.MaxLearners != nil {
		cohort.MaxLearners = *req.MaxLearners
		changes["max_learners"] = *req.MaxLearners
	}
	if req.Status != nil {
		cohort.Status = models.CohortStatus(strings.ToUpper(*req.Status))
		changes["status"] = cohort.Status
	}
	if len(changes) == 0 {
		return cohort, nil
	}
	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cohort")
	}
	s.audit.Record(ctx, claims, models.AuditActionCohortUpdate, "cohort", cohort.ID, changes)
	return cohort, nil
}

// Delete removes a cohort. Admin only, and refused while any learner row
// remains, withdrawn ones included.
func (s *CohortService) Delete(ctx context.Context, claims *models.JWTClaims, cohortID string) error {
	if err := s.access.RequireAdmin(claims); err != nil {
		return err
	}
	cohort, err := s.findCohort(ctx, cohortID)
	if err != nil {
		return err
	}
	count, err := s.repo.CountLearners(ctx, cohortID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count learners")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cohort still has learner records")
	}
	if err := s.repo.Delete(ctx, cohortID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cohort")
	}
	s.audit.Record(ctx, claims, models.AuditActionCohortDelete, "cohort", cohortID, map[string]interface{}{
		"name": cohort.Name,
	})
	return nil
}

// ListInstructors returns the cohort's instructor assignments.
func (s *CohortService) ListInstructors(ctx context.Context, claims *models.JWTClaims, cohortID string) ([]models.InstructorAssignment, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	instructors, err := s.repo.ListInstructors(ctx, cohortID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// AssignInstructor attaches an instructor to a cohort, or updates the role
// of an existing assignment. Admin only.
func (s *CohortService) AssignInstructor(ctx context.Context, claims *models.JWTClaims, cohortID string, req AssignInstructorRequest) (*models.InstructorAssignment, error) {
	if err := s.access.RequireAdmin(claims); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.findCohort(ctx, cohortID); err != nil {
		return nil, err
	}
	assignment := &models.InstructorAssignment{
		CohortID: cohortID,
		UserID:   req.UserID,
		Role:     models.InstructorRole(strings.ToUpper(req.Role)),
	}
	if err := s.repo.AssignInstructor(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign instructor")
	}
	s.audit.Record(ctx, claims, models.AuditActionCohortUpdate, "cohort", cohortID, map[string]interface{}{
		"instructor_assigned": req.UserID,
		"role":                assignment.Role,
	})
	return assignment, nil
}

// UnassignInstructor detaches an instructor from a cohort. Admin only.
func (s *CohortService) UnassignInstructor(ctx context.Context, claims *models.JWTClaims, cohortID, userID string) error {
	if err := s.access.RequireAdmin(claims); err != nil {
		return err
	}
	if _, err := s.findCohort(ctx, cohortID); err != nil {
		return err
	}
	if err := s.repo.UnassignInstructor(ctx, userID, cohortID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor is not assigned to this cohort")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign instructor")
	}
	s.audit.Record(ctx, claims, models.AuditActionCohortUpdate, "cohort", cohortID, map[string]interface{}{
		"instructor_unassigned": userID,
	})
	return nil
}

func (s *CohortService) findCohort(ctx context.Context, cohortID string) (*models.Cohort, error) {
	cohort, err := s.repo.FindByID(ctx, cohortID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return cohort, nil
}

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

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ExistsForLessonOnDate(ctx context.Context, cohortID, lessonID string, day time.Time, excludeID string) (bool, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
}

// SessionService manages the cohort's session schedule. At most one session
// may exist per (cohort, lesson, calendar day).
type SessionService struct {
	repo      sessionRepository
	access    accessGuard
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionRepository, access accessGuard, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SessionService{repo: repo, access: access, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	svc.validator.RegisterValidation("session_status", func(fl validator.FieldLevel) bool {
		return models.SessionStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// ListSessionsRequest carries filters for the session schedule.
type ListSessionsRequest struct {
	LessonID  string     `json:"lesson_id"`
	Status    *string    `json:"status" validate:"omitempty,session_status"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

// CreateSessionRequest schedules a session.
type CreateSessionRequest struct {
	LessonID    string    `json:"lesson_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// UpdateSessionRequest edits a session. Nil fields are left as is.
type UpdateSessionRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *string    `json:"status" validate:"omitempty,session_status"`
	ActualStart *time.Time `json:"actual_start"`
	ActualEnd   *time.Time `json:"actual_end"`
}

// List returns the cohort's sessions.
func (s *SessionService) List(ctx context.Context, claims *models.JWTClaims, cohortID string, req ListSessionsRequest) ([]models.Session, *models.Pagination, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.SessionFilter{
		CohortID:  cohortID,
		LessonID:  req.LessonID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Status != nil {
		filter.Status = models.SessionStatus(strings.ToUpper(*req.Status))
	}
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one session scoped to the cohort.
func (s *SessionService) Get(ctx context.Context, claims *models.JWTClaims, cohortID, sessionID string) (*models.Session, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	return s.findInCohort(ctx, cohortID, sessionID)
}

// Create schedules a new session for a lesson. A lesson may only be
// delivered once per cohort per calendar day.
func (s *SessionService) Create(ctx context.Context, claims *models.JWTClaims, cohortID string, req CreateSessionRequest) (*models.Session, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	exists, err := s.repo.ExistsForLessonOnDate(ctx, cohortID, req.LessonID, req.ScheduledAt, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a session for this lesson already exists on that day")
	}
	session := &models.Session{
		CohortID:    cohortID,
		LessonID:    req.LessonID,
		ScheduledAt: req.ScheduledAt,
		Status:      models.SessionStatusScheduled,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.audit.Record(ctx, claims, models.AuditActionSessionCreate, "session", session.ID, map[string]interface{}{
		"cohort_id":    cohortID,
		"lesson_id":    session.LessonID,
		"scheduled_at": session.ScheduledAt,
	})
	return session, nil
}

// Update edits or transitions a session. The first transition into
// IN_PROGRESS stamps actual_start and the first into COMPLETED stamps
// actual_end, unless the caller supplies those times explicitly.
func (s *SessionService) Update(ctx context.Context, claims *models.JWTClaims, cohortID, sessionID string, req UpdateSessionRequest) (*models.Session, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	session, err := s.findInCohort(ctx, cohortID, sessionID)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.ScheduledAt != nil && !req.ScheduledAt.Equal(session.ScheduledAt) {
		exists, err := s.repo.ExistsForLessonOnDate(ctx, cohortID, session.LessonID, *req.ScheduledAt, session.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a session for this lesson already exists on that day")
		}
		session.ScheduledAt = *req.ScheduledAt
		changes["scheduled_at"] = *req.ScheduledAt
	}
	if req.ActualStart != nil {
		session.ActualStart = req.ActualStart
		changes["actual_start"] = *req.ActualStart
	}
	if req.ActualEnd != nil {
		session.ActualEnd = req.ActualEnd
		changes["actual_end"] = *req.ActualEnd
	}
	if req.Status != nil {
		next := models.SessionStatus(strings.ToUpper(*req.Status))
		if next != session.Status {
			if next == models.SessionStatusInProgress && session.ActualStart == nil {
				now := s.now()
				session.ActualStart = &now
				changes["actual_start"] = now
			}
			if next == models.SessionStatusCompleted && session.ActualEnd == nil {
				now := s.now()
				session.ActualEnd = &now
				changes["actual_end"] = now
			}
			session.Status = next
			changes["status"] = next
		}
	}
	if len(changes) == 0 {
		return session, nil
	}
	if err := s.repo.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	s.audit.Record(ctx, claims, models.AuditActionSessionUpdate, "session", session.ID, changes)
	return session, nil
}

func (s *SessionService) findInCohort(ctx context.Context, cohortID, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.CohortID != cohortID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return session, nil
}

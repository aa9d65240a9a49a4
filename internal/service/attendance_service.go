package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, error)
	Stats(ctx context.Context, filter models.AttendanceFilter) (*models.AttendanceStats, error)
	Rates(ctx context.Context, cohortID, learnerID string) ([]models.AttendanceRate, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error)
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type membershipReader interface {
	FindByID(ctx context.Context, id string) (*models.Learner, error)
	MembersOfCohort(ctx context.Context, cohortID string, learnerIDs []string) (map[string]bool, error)
}

// AttendanceService coordinates attendance marking and the derived
// attendance-rate read side.
type AttendanceService struct {
	repo      attendanceRepository
	sessions  sessionReader
	learners  membershipReader
	access    accessGuard
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, sessions sessionReader, learners membershipReader, access accessGuard, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{repo: repo, sessions: sessions, learners: learners, access: access, audit: audit, cache: cache, validator: validate, logger: logger}
	svc.validator.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// ListAttendanceRequest carries filters for listing attendance.
type ListAttendanceRequest struct {
	SessionID string  `json:"session_id"`
	LearnerID string  `json:"learner_id"`
	Status    *string `json:"status" validate:"omitempty,attendance_status"`
}

// MarkAttendanceRequest is the single-record mark payload.
type MarkAttendanceRequest struct {
	SessionID string     `json:"session_id" validate:"required"`
	LearnerID string     `json:"learner_id" validate:"required"`
	Status    string     `json:"status" validate:"required,attendance_status"`
	ArrivedAt *time.Time `json:"arrived_at"`
}

// BulkMarkAttendanceItem holds one entry of a bulk mark.
type BulkMarkAttendanceItem struct {
	LearnerID string     `json:"learner_id" validate:"required"`
	Status    string     `json:"status" validate:"required,attendance_status"`
	ArrivedAt *time.Time `json:"arrived_at"`
}

// BulkMarkAttendanceRequest marks a whole session register in one call.
type BulkMarkAttendanceRequest struct {
	SessionID string                   `json:"session_id" validate:"required"`
	Records   []BulkMarkAttendanceItem `json:"records" validate:"required,min=1,dive"`
}

// AttendanceListResult bundles records with the read-side projections.
type AttendanceListResult struct {
	Records []models.AttendanceRecordDetail `json:"records"`
	Stats   *models.AttendanceStats         `json:"stats"`
	Rates   []models.AttendanceRate         `json:"rates"`
}

// List returns attendance records, per-status counts, and per-learner rates
// for a cohort. The second return reports whether the result came from cache.
func (s *AttendanceService) List(ctx context.Context, claims *models.JWTClaims, cohortID string, req ListAttendanceRequest) (*AttendanceListResult, bool, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, false, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	filter := models.AttendanceFilter{CohortID: cohortID, SessionID: req.SessionID, LearnerID: req.LearnerID}
	if req.Status != nil {
		status := models.AttendanceStatus(strings.ToUpper(*req.Status))
		filter.Status = &status
	}

	cacheKey := fmt.Sprintf("attendance:%s:%s:%s:%s", cohortID, req.SessionID, req.LearnerID, strings.ToUpper(stringOrEmpty(req.Status)))
	var cached AttendanceListResult
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	rates, err := s.repo.Rates(ctx, cohortID, req.LearnerID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance rates")
	}
	// A learner with no marks against completed sessions has no rate yet;
	// surface that as an explicit nil rather than omitting the learner.
	if req.LearnerID != "" && len(rates) == 0 {
		rates = append(rates, models.AttendanceRate{LearnerID: req.LearnerID})
	}

	result := &AttendanceListResult{Records: records, Stats: stats, Rates: rates}
	_ = s.cache.Set(ctx, cacheKey, result, 0)
	return result, false, nil
}

// Mark upserts one attendance record. Single updates are not audited.
func (s *AttendanceService) Mark(ctx context.Context, claims *models.JWTClaims, cohortID string, req MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.checkSession(ctx, cohortID, req.SessionID); err != nil {
		return nil, err
	}
	learner, err := s.learners.FindByID(ctx, req.LearnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "learner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load learner")
	}
	if learner.CohortID != cohortID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "learner does not belong to this cohort")
	}

	record := &models.AttendanceRecord{
		SessionID:  req.SessionID,
		LearnerID:  req.LearnerID,
		Status:     models.AttendanceStatus(strings.ToUpper(req.Status)),
		ArrivedAt:  req.ArrivedAt,
		RecordedBy: claims.UserID,
	}
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("attendance:%s:*", cohortID))
	return stored, nil
}

// BulkMark upserts a whole register in one transaction. Membership of the
// session and of every learner is checked before any write; a single stray
// learner rejects the entire batch.
func (s *AttendanceService) BulkMark(ctx context.Context, claims *models.JWTClaims, cohortID string, req BulkMarkAttendanceRequest) ([]models.AttendanceRecord, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.checkSession(ctx, cohortID, req.SessionID); err != nil {
		return nil, err
	}

	learnerIDs := make([]string, 0, len(req.Records))
	seen := map[string]struct{}{}
	for _, item := range req.Records {
		if _, ok := seen[item.LearnerID]; ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate learner in payload")
		}
		seen[item.LearnerID] = struct{}{}
		learnerIDs = append(learnerIDs, item.LearnerID)
	}

	members, err := s.learners.MembersOfCohort(ctx, cohortID, learnerIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate cohort membership")
	}
	var strays []string
	for _, id := range learnerIDs {
		if !members[id] {
			strays = append(strays, id)
		}
	}
	if len(strays) > 0 {
		return nil, appErrors.Clone(appErrors.ErrBatchRejected, fmt.Sprintf("%d learner(s) do not belong to this cohort", len(strays)))
	}

	records := make([]models.AttendanceRecord, len(req.Records))
	for i, item := range req.Records {
		records[i] = models.AttendanceRecord{
			SessionID:  req.SessionID,
			LearnerID:  item.LearnerID,
			Status:     models.AttendanceStatus(strings.ToUpper(item.Status)),
			ArrivedAt:  item.ArrivedAt,
			RecordedBy: claims.UserID,
		}
	}
	stored, err := s.repo.BulkUpsert(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk mark failed")
	}

	counts := map[string]interface{}{}
	statusCounts := models.AttendanceStats{}
	for _, rec := range stored {
		statusCounts.Add(rec.Status, 1)
	}
	counts["session_id"] = req.SessionID
	counts["total"] = statusCounts.Total
	counts["present"] = statusCounts.Present
	counts["late"] = statusCounts.Late
	counts["absent"] = statusCounts.Absent
	counts["excused"] = statusCounts.Excused
	counts["partial"] = statusCounts.Partial
	s.audit.Record(ctx, claims, models.AuditActionAttendanceBulk, "cohort", cohortID, counts)

	_ = s.cache.Invalidate(ctx, fmt.Sprintf("attendance:%s:*", cohortID))
	return stored, nil
}

func (s *AttendanceService) checkSession(ctx context.Context, cohortID, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.CohortID != cohortID {
		return appErrors.Clone(appErrors.ErrNotFound, "session does not belong to this cohort")
	}
	return nil
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

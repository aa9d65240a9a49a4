package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

// auditRecorder is the write-only view of AuditService the domain services
// depend on.
type auditRecorder interface {
	Record(ctx context.Context, actor *models.JWTClaims, action, entityType, entityID string, details map[string]interface{})
}

// AuditService is the append-only sink for mutating actions. A failed write
// degrades to a warning log; it never aborts the business operation that
// already succeeded.
type AuditService struct {
	repo    auditRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// Record appends one audit entry. Details are marshalled to JSON; a nil
// details map produces an empty payload.
func (s *AuditService) Record(ctx context.Context, actor *models.JWTClaims, action, entityType, entityID string, details map[string]interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
	}
	if actor != nil {
		actorID := actor.UserID
		entry.ActorID = &actorID
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("audit details marshal failed", zap.String("action", action), zap.Error(err))
		} else {
			entry.Details = payload
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.metrics.RecordAuditFailure()
		s.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// List returns audit entries for admin review.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

package service

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type assignmentChecker interface {
	IsInstructorAssigned(ctx context.Context, userID, cohortID string) (bool, error)
}

// accessGuard is the narrow view of AccessService consumed by the domain
// services.
type accessGuard interface {
	Require(ctx context.Context, claims *models.JWTClaims, cohortID string) error
	RequireAdmin(claims *models.JWTClaims) error
}

// AccessDecision is the result of a cohort access check.
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Status  int    `json:"status"`
}

// AccessService decides whether a caller may act on a cohort. It is the
// single gate in front of every read and write in this API: admin tiers pass
// unconditionally, instructors only for cohorts they are assigned to, and
// everyone else is denied.
type AccessService struct {
	assignments assignmentChecker
	logger      *zap.Logger
}

// NewAccessService constructs the access service.
func NewAccessService(assignments assignmentChecker, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{assignments: assignments, logger: logger}
}

// Authorize evaluates (caller, cohort). It reads the assignment table at most
// once and has no side effects.
func (s *AccessService) Authorize(ctx context.Context, claims *models.JWTClaims, cohortID string) (AccessDecision, error) {
	if claims == nil || claims.UserID == "" {
		return AccessDecision{Allowed: false, Reason: "authentication required", Status: http.StatusUnauthorized}, nil
	}
	if claims.Role.IsAdminTier() {
		return AccessDecision{Allowed: true, Status: http.StatusOK}, nil
	}
	if claims.Role == models.RoleInstructor {
		assigned, err := s.assignments.IsInstructorAssigned(ctx, claims.UserID, cohortID)
		if err != nil {
			return AccessDecision{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cohort assignment")
		}
		if assigned {
			return AccessDecision{Allowed: true, Status: http.StatusOK}, nil
		}
		return AccessDecision{Allowed: false, Reason: "not assigned to this cohort", Status: http.StatusForbidden}, nil
	}
	return AccessDecision{Allowed: false, Reason: "role may not access cohort data", Status: http.StatusForbidden}, nil
}

// Require is the convenience form used by every operation: it converts a
// denial into the matching typed error.
func (s *AccessService) Require(ctx context.Context, claims *models.JWTClaims, cohortID string) error {
	decision, err := s.Authorize(ctx, claims, cohortID)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}
	if decision.Status == http.StatusUnauthorized {
		return appErrors.Clone(appErrors.ErrUnauthenticated, decision.Reason)
	}
	return appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
}

// RequireAdmin gates operations restricted to platform admins regardless of
// instructor assignment (IQA sample deletion, learner hard delete).
func (s *AccessService) RequireAdmin(claims *models.JWTClaims) error {
	if claims == nil || claims.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required")
	}
	if !claims.Role.IsAdminTier() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin role required")
	}
	return nil
}

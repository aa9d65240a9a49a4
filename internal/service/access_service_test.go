package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type assignmentCheckerStub struct {
	assigned bool
	err      error
	calls    int
}

func (s *assignmentCheckerStub) IsInstructorAssigned(ctx context.Context, userID, cohortID string) (bool, error) {
	s.calls++
	return s.assigned, s.err
}

func TestAccessServiceAuthorizeNilClaims(t *testing.T) {
	checker := &assignmentCheckerStub{assigned: true}
	svc := NewAccessService(checker, nil)

	decision, err := svc.Authorize(context.Background(), nil, "cohort-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, http.StatusUnauthorized, decision.Status)
	assert.Zero(t, checker.calls)
}

func TestAccessServiceAuthorizeAdminTiers(t *testing.T) {
	checker := &assignmentCheckerStub{assigned: false}
	svc := NewAccessService(checker, nil)

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin} {
		decision, err := svc.Authorize(context.Background(), &models.JWTClaims{UserID: "user-1", Role: role}, "cohort-1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}
	assert.Zero(t, checker.calls, "admin tiers must not touch the assignment table")
}

func TestAccessServiceAuthorizeInstructor(t *testing.T) {
	svc := NewAccessService(&assignmentCheckerStub{assigned: true}, nil)
	decision, err := svc.Authorize(context.Background(), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}, "cohort-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	svc = NewAccessService(&assignmentCheckerStub{assigned: false}, nil)
	decision, err = svc.Authorize(context.Background(), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}, "cohort-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, http.StatusForbidden, decision.Status)
}

func TestAccessServiceAuthorizeLearnerDenied(t *testing.T) {
	checker := &assignmentCheckerStub{assigned: true}
	svc := NewAccessService(checker, nil)

	decision, err := svc.Authorize(context.Background(), &models.JWTClaims{UserID: "learner-1", Role: models.RoleLearner}, "cohort-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, http.StatusForbidden, decision.Status)
	assert.Zero(t, checker.calls)
}

func TestAccessServiceRequireMapsErrors(t *testing.T) {
	svc := NewAccessService(&assignmentCheckerStub{assigned: false}, nil)

	err := svc.Require(context.Background(), nil, "cohort-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrUnauthenticated.Code, typed.Code)

	err = svc.Require(context.Background(), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}, "cohort-1")
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)

	require.NoError(t, svc.Require(context.Background(), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, "cohort-1"))
}

func TestAccessServiceRequireAssignmentLookupFailure(t *testing.T) {
	svc := NewAccessService(&assignmentCheckerStub{err: errors.New("db down")}, nil)
	err := svc.Require(context.Background(), &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}, "cohort-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrInternal.Code, typed.Code)
}

func TestAccessServiceRequireAdmin(t *testing.T) {
	svc := NewAccessService(&assignmentCheckerStub{}, nil)

	var typed *appErrors.Error
	require.True(t, errors.As(svc.RequireAdmin(nil), &typed))
	assert.Equal(t, appErrors.ErrUnauthenticated.Code, typed.Code)

	require.True(t, errors.As(svc.RequireAdmin(&models.JWTClaims{UserID: "inst", Role: models.RoleInstructor}), &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)

	require.NoError(t, svc.RequireAdmin(&models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}))
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type cohortRepoStub struct {
	cohorts      map[string]*models.Cohort
	learnerCount int
	lastFilter   models.CohortFilter
	deleted      []string
	created      *models.Cohort
}

func (s *cohortRepoStub) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	s.lastFilter = filter
	return nil, 0, nil
}

func (s *cohortRepoStub) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	if cohort, ok := s.cohorts[id]; ok {
		copied := *cohort
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *cohortRepoStub) Create(ctx context.Context, cohort *models.Cohort) error {
	cohort.ID = "cohort-new"
	s.created = cohort
	return nil
}

func (s *cohortRepoStub) Update(ctx context.Context, cohort *models.Cohort) error { return nil }

func (s *cohortRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *cohortRepoStub) CountLearners(ctx context.Context, cohortID string) (int, error) {
	return s.learnerCount, nil
}

func (s *cohortRepoStub) ListInstructors(ctx context.Context, cohortID string) ([]models.InstructorAssignment, error) {
	return nil, nil
}

func (s *cohortRepoStub) AssignInstructor(ctx context.Context, assignment *models.InstructorAssignment) error {
	return nil
}

func (s *cohortRepoStub) UnassignInstructor(ctx context.Context, userID, cohortID string) error {
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}
}

func TestCohortServiceListScopesInstructors(t *testing.T) {
	repo := &cohortRepoStub{}
	svc := NewCohortService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	_, _, err := svc.List(context.Background(), instructorClaims(), ListCohortsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "inst-1", repo.lastFilter.InstructorID)

	_, _, err = svc.List(context.Background(), adminClaims(), ListCohortsRequest{})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.InstructorID)
}

func TestCohortServiceListRejectsLearnerRole(t *testing.T) {
	svc := NewCohortService(&cohortRepoStub{}, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	_, _, err := svc.List(context.Background(), &models.JWTClaims{UserID: "lrn-1", Role: models.RoleLearner}, ListCohortsRequest{})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestCohortServiceListRequiresAuthentication(t *testing.T) {
	svc := NewCohortService(&cohortRepoStub{}, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	_, _, err := svc.List(context.Background(), nil, ListCohortsRequest{})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrUnauthenticated.Code, typed.Code)
}

func TestCohortServiceCreateDefaultsToDraft(t *testing.T) {
	repo := &cohortRepoStub{}
	audit := &auditRecorderStub{}
	svc := NewCohortService(repo, accessGuardStub{}, audit, nil, nil)

	cohort, err := svc.Create(context.Background(), adminClaims(), CreateCohortRequest{
		CourseID:    "crs-1",
		Name:        "Electrical Installation 2024",
		MaxLearners: 16,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CohortStatusDraft, cohort.Status)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionCohortCreate, audit.actions[0])
}

func TestCohortServiceDeleteBlockedWhileLearnersRemain(t *testing.T) {
	repo := &cohortRepoStub{
		cohorts:      map[string]*models.Cohort{"cohort-1": {ID: "cohort-1", Name: "Plumbing L2"}},
		learnerCount: 3,
	}
	svc := NewCohortService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	err := svc.Delete(context.Background(), adminClaims(), "cohort-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, typed.Code)
	assert.Empty(t, repo.deleted)
}

func TestCohortServiceDeleteEmptyCohort(t *testing.T) {
	repo := &cohortRepoStub{
		cohorts: map[string]*models.Cohort{"cohort-1": {ID: "cohort-1", Name: "Plumbing L2"}},
	}
	audit := &auditRecorderStub{}
	svc := NewCohortService(repo, accessGuardStub{}, audit, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "cohort-1"))
	assert.Equal(t, []string{"cohort-1"}, repo.deleted)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionCohortDelete, audit.actions[0])
}

func TestCohortServiceDeleteAdminOnly(t *testing.T) {
	repo := &cohortRepoStub{cohorts: map[string]*models.Cohort{"cohort-1": {ID: "cohort-1"}}}
	guard := accessGuardStub{adminErr: appErrors.Clone(appErrors.ErrForbidden, "administrator role required")}
	svc := NewCohortService(repo, guard, &auditRecorderStub{}, nil, nil)

	err := svc.Delete(context.Background(), instructorClaims(), "cohort-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
	assert.Empty(t, repo.deleted)
}

func TestCohortServiceAssignInstructorNormalizesRole(t *testing.T) {
	repo := &cohortRepoStub{cohorts: map[string]*models.Cohort{"cohort-1": {ID: "cohort-1"}}}
	svc := NewCohortService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	assignment, err := svc.AssignInstructor(context.Background(), adminClaims(), "cohort-1", AssignInstructorRequest{
		UserID: "inst-2",
		Role:   "lead",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InstructorRoleLead, assignment.Role)
}

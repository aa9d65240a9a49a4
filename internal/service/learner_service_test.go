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

type learnerRepoStub struct {
	learners    map[string]*models.Learner
	emailExists bool
	created     *models.Learner
	statusSet   *models.LearnerStatus
	hardDeleted []string
}

func (s *learnerRepoStub) List(ctx context.Context, filter models.LearnerFilter) ([]models.Learner, int, error) {
	return nil, 0, nil
}

func (s *learnerRepoStub) FindByID(ctx context.Context, id string) (*models.Learner, error) {
	if learner, ok := s.learners[id]; ok {
		copied := *learner
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *learnerRepoStub) EmailExists(ctx context.Context, cohortID, email, excludeID string) (bool, error) {
	return s.emailExists, nil
}

func (s *learnerRepoStub) Create(ctx context.Context, learner *models.Learner) error {
	learner.ID = "lrn-new"
	s.created = learner
	return nil
}

func (s *learnerRepoStub) Update(ctx context.Context, learner *models.Learner) error { return nil }

func (s *learnerRepoStub) UpdateStatus(ctx context.Context, id string, status models.LearnerStatus) error {
	s.statusSet = &status
	return nil
}

func (s *learnerRepoStub) HardDelete(ctx context.Context, id string) error {
	s.hardDeleted = append(s.hardDeleted, id)
	return nil
}

func TestLearnerServiceEnrollNormalizesEmail(t *testing.T) {
	repo := &learnerRepoStub{}
	audit := &auditRecorderStub{}
	svc := NewLearnerService(repo, accessGuardStub{}, audit, nil, nil)

	learner, err := svc.Enroll(context.Background(), instructorClaims(), "cohort-1", EnrollLearnerRequest{
		FullName: "Ada Lin",
		Email:    "  Ada.Lin@Example.COM ",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.lin@example.com", learner.Email)
	assert.Equal(t, models.LearnerStatusEnrolled, learner.Status)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionLearnerEnroll, audit.actions[0])
}

func TestLearnerServiceEnrollDuplicateEmail(t *testing.T) {
	repo := &learnerRepoStub{emailExists: true}
	svc := NewLearnerService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	_, err := svc.Enroll(context.Background(), instructorClaims(), "cohort-1", EnrollLearnerRequest{
		FullName: "Ada Lin",
		Email:    "ada.lin@example.com",
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Nil(t, repo.created)
}

func TestLearnerServiceWithdrawSoftDeletes(t *testing.T) {
	repo := &learnerRepoStub{learners: map[string]*models.Learner{
		"lrn-1": {ID: "lrn-1", CohortID: "cohort-1", Status: models.LearnerStatusEnrolled},
	}}
	audit := &auditRecorderStub{}
	svc := NewLearnerService(repo, accessGuardStub{}, audit, nil, nil)

	require.NoError(t, svc.Withdraw(context.Background(), instructorClaims(), "cohort-1", "lrn-1"))
	require.NotNil(t, repo.statusSet)
	assert.Equal(t, models.LearnerStatusWithdrawn, *repo.statusSet)
	assert.Empty(t, repo.hardDeleted)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionLearnerWithdraw, audit.actions[0])
}

func TestLearnerServiceWithdrawAlreadyWithdrawn(t *testing.T) {
	repo := &learnerRepoStub{learners: map[string]*models.Learner{
		"lrn-1": {ID: "lrn-1", CohortID: "cohort-1", Status: models.LearnerStatusWithdrawn},
	}}
	svc := NewLearnerService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	err := svc.Withdraw(context.Background(), instructorClaims(), "cohort-1", "lrn-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Nil(t, repo.statusSet)
}

func TestLearnerServiceGetHidesOtherCohorts(t *testing.T) {
	repo := &learnerRepoStub{learners: map[string]*models.Learner{
		"lrn-1": {ID: "lrn-1", CohortID: "cohort-2"},
	}}
	svc := NewLearnerService(repo, accessGuardStub{}, &auditRecorderStub{}, nil, nil)

	_, err := svc.Get(context.Background(), instructorClaims(), "cohort-1", "lrn-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestLearnerServiceHardDeleteAdminOnly(t *testing.T) {
	repo := &learnerRepoStub{learners: map[string]*models.Learner{
		"lrn-1": {ID: "lrn-1", CohortID: "cohort-1"},
	}}
	guard := accessGuardStub{adminErr: appErrors.Clone(appErrors.ErrForbidden, "administrator role required")}
	svc := NewLearnerService(repo, guard, &auditRecorderStub{}, nil, nil)

	err := svc.HardDelete(context.Background(), instructorClaims(), "cohort-1", "lrn-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
	assert.Empty(t, repo.hardDeleted)

	audit := &auditRecorderStub{}
	svc = NewLearnerService(repo, accessGuardStub{}, audit, nil, nil)
	require.NoError(t, svc.HardDelete(context.Background(), adminClaims(), "cohort-1", "lrn-1"))
	assert.Equal(t, []string{"lrn-1"}, repo.hardDeleted)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionLearnerHardDelete, audit.actions[0])
}

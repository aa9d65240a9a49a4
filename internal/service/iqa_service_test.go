package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type iqaRepoStub struct {
	samples map[string]*models.IqaSample
	created *models.IqaSample
	updated *models.IqaSample
	deleted []string
}

func (s *iqaRepoStub) ListByCohort(ctx context.Context, cohortID string) ([]models.IqaSample, error) {
	return nil, nil
}

func (s *iqaRepoStub) FindByID(ctx context.Context, id string) (*models.IqaSample, error) {
	if sample, ok := s.samples[id]; ok {
		copied := *sample
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *iqaRepoStub) Create(ctx context.Context, sample *models.IqaSample) error {
	sample.ID = "iqa-new"
	s.created = sample
	return nil
}

func (s *iqaRepoStub) Update(ctx context.Context, sample *models.IqaSample) error {
	s.updated = sample
	return nil
}

func (s *iqaRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type rosterStub struct {
	members  map[string]bool
	displays []models.LearnerDisplay
}

func (s rosterStub) MembersOfCohort(ctx context.Context, cohortID string, learnerIDs []string) (map[string]bool, error) {
	return s.members, nil
}

func (s rosterStub) DisplayByIDs(ctx context.Context, ids []string) ([]models.LearnerDisplay, error) {
	return s.displays, nil
}

type sampleSignoffStub struct {
	records []models.AssessmentSignoff
}

func (s sampleSignoffStub) ListForSample(ctx context.Context, learnerIDs, criteriaCodes []string) ([]models.AssessmentSignoff, error) {
	return s.records, nil
}

func newIqaService(repo *iqaRepoStub, roster rosterStub, audit *auditRecorderStub) *IqaService {
	svc := NewIqaService(repo, roster, sampleSignoffStub{}, accessGuardStub{}, audit, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestIqaServiceCreatePlansSample(t *testing.T) {
	repo := &iqaRepoStub{}
	audit := &auditRecorderStub{}
	svc := newIqaService(repo, rosterStub{members: map[string]bool{"lrn-1": true, "lrn-2": true}}, audit)

	sample, err := svc.Create(context.Background(), instructorClaims(), "cohort-1", CreateIqaSampleRequest{
		SamplePeriod:  "2024-Q2",
		LearnerIDs:    []string{"lrn-1", "lrn-2"},
		CriteriaCodes: []string{"C1.2", "C1.3"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.IqaSampleStatusPlanned, sample.Status)
	assert.Nil(t, sample.CompletedAt)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionIqaSampleCreate, audit.actions[0])
	assert.Equal(t, 2, audit.details[0]["learner_count"])
}

func TestIqaServiceCreateRejectsStrayLearner(t *testing.T) {
	repo := &iqaRepoStub{}
	svc := newIqaService(repo, rosterStub{members: map[string]bool{"lrn-1": true}}, &auditRecorderStub{})

	_, err := svc.Create(context.Background(), instructorClaims(), "cohort-1", CreateIqaSampleRequest{
		SamplePeriod:  "2024-Q2",
		LearnerIDs:    []string{"lrn-1", "lrn-9"},
		CriteriaCodes: []string{"C1.2"},
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
	assert.Nil(t, repo.created)
}

func TestIqaServiceUpdateStampsCompletedOnce(t *testing.T) {
	previously := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &iqaRepoStub{samples: map[string]*models.IqaSample{
		"iqa-1": {ID: "iqa-1", CohortID: "cohort-1", Status: models.IqaSampleStatusInProgress},
		"iqa-2": {ID: "iqa-2", CohortID: "cohort-1", Status: models.IqaSampleStatusActionRequired, CompletedAt: &previously},
	}}
	svc := newIqaService(repo, rosterStub{}, &auditRecorderStub{})

	status := "completed"
	sample, err := svc.Update(context.Background(), instructorClaims(), "cohort-1", "iqa-1", UpdateIqaSampleRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.IqaSampleStatusCompleted, sample.Status)
	require.NotNil(t, sample.CompletedAt)
	assert.Equal(t, svc.now(), *sample.CompletedAt)

	sample, err = svc.Update(context.Background(), instructorClaims(), "cohort-1", "iqa-2", UpdateIqaSampleRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, previously, *sample.CompletedAt, "an earlier completion time is never overwritten")
}

func TestIqaServiceDeleteAdminOnly(t *testing.T) {
	repo := &iqaRepoStub{samples: map[string]*models.IqaSample{
		"iqa-1": {ID: "iqa-1", CohortID: "cohort-1", SamplePeriod: "2024-Q2"},
	}}
	guard := accessGuardStub{adminErr: appErrors.Clone(appErrors.ErrForbidden, "administrator role required")}
	svc := NewIqaService(repo, rosterStub{}, sampleSignoffStub{}, guard, &auditRecorderStub{}, nil, nil)

	err := svc.Delete(context.Background(), instructorClaims(), "cohort-1", "iqa-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
	assert.Empty(t, repo.deleted)

	audit := &auditRecorderStub{}
	svc = NewIqaService(repo, rosterStub{}, sampleSignoffStub{}, accessGuardStub{}, audit, nil, nil)
	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "cohort-1", "iqa-1"))
	assert.Equal(t, []string{"iqa-1"}, repo.deleted)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionIqaSampleDelete, audit.actions[0])
	assert.Equal(t, "2024-Q2", audit.details[0]["sample_period"])
}

func TestIqaServiceGetScopedToCohort(t *testing.T) {
	repo := &iqaRepoStub{samples: map[string]*models.IqaSample{
		"iqa-1": {ID: "iqa-1", CohortID: "cohort-2"},
	}}
	svc := newIqaService(repo, rosterStub{}, &auditRecorderStub{})

	_, err := svc.Get(context.Background(), instructorClaims(), "cohort-1", "iqa-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

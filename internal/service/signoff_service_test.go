package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type signoffRepoStub struct {
	records     []models.AssessmentSignoffDetail
	stats       *models.SignoffStats
	upserted    *models.AssessmentSignoff
	bulkCalls   int
	bulkRecords []models.AssessmentSignoff
}

func (s *signoffRepoStub) List(ctx context.Context, filter models.SignoffFilter) ([]models.AssessmentSignoffDetail, error) {
	return s.records, nil
}

func (s *signoffRepoStub) Stats(ctx context.Context, filter models.SignoffFilter) (*models.SignoffStats, error) {
	if s.stats == nil {
		return &models.SignoffStats{}, nil
	}
	return s.stats, nil
}

func (s *signoffRepoStub) Upsert(ctx context.Context, record *models.AssessmentSignoff) (*models.AssessmentSignoff, error) {
	s.upserted = record
	stored := *record
	if stored.ID == "" {
		stored.ID = "so-1"
	}
	return &stored, nil
}

func (s *signoffRepoStub) BulkUpsert(ctx context.Context, records []models.AssessmentSignoff) ([]models.AssessmentSignoff, error) {
	s.bulkCalls++
	s.bulkRecords = records
	return records, nil
}

func signoffMembers(ids ...string) membershipStub {
	members := map[string]bool{}
	for _, id := range ids {
		members[id] = true
	}
	return membershipStub{members: members}
}

func TestSignoffServiceUpsertStampsDecisiveStatus(t *testing.T) {
	repo := &signoffRepoStub{}
	audit := &auditRecorderStub{}
	svc := NewSignoffService(repo, signoffMembers("lrn-1"), accessGuardStub{}, audit, disabledCache(), nil, nil)

	record, err := svc.Upsert(context.Background(), instructorClaims(), "cohort-1", UpsertSignoffRequest{
		LearnerID:     "lrn-1",
		LessonID:      "les-1",
		CriterionCode: "C1.2",
		CriterionText: "Safely isolates the supply",
		Status:        "signed_off",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SignoffStatusSignedOff, record.Status)
	require.NotNil(t, record.SignedOffAt)
	require.NotNil(t, record.SignedOffBy)
	assert.Equal(t, "inst-1", *record.SignedOffBy)

	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionSignoffUpsert, audit.actions[0])
}

func TestSignoffServiceUpsertClearsStampOnRework(t *testing.T) {
	repo := &signoffRepoStub{}
	audit := &auditRecorderStub{}
	svc := NewSignoffService(repo, signoffMembers("lrn-1"), accessGuardStub{}, audit, disabledCache(), nil, nil)

	record, err := svc.Upsert(context.Background(), instructorClaims(), "cohort-1", UpsertSignoffRequest{
		LearnerID:     "lrn-1",
		LessonID:      "les-1",
		CriterionCode: "C1.2",
		CriterionText: "Safely isolates the supply",
		Status:        "IN_PROGRESS",
	})
	require.NoError(t, err)
	assert.Nil(t, record.SignedOffAt)
	assert.Nil(t, record.SignedOffBy)
	assert.Empty(t, audit.actions, "routine progress edits are not audited")
}

func TestSignoffServiceUpsertAuditsRequiresRevision(t *testing.T) {
	audit := &auditRecorderStub{}
	svc := NewSignoffService(&signoffRepoStub{}, signoffMembers("lrn-1"), accessGuardStub{}, audit, disabledCache(), nil, nil)

	record, err := svc.Upsert(context.Background(), instructorClaims(), "cohort-1", UpsertSignoffRequest{
		LearnerID:     "lrn-1",
		LessonID:      "les-1",
		CriterionCode: "C1.3",
		CriterionText: "Completes the test record",
		Status:        "REQUIRES_REVISION",
	})
	require.NoError(t, err)
	assert.Nil(t, record.SignedOffAt)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionSignoffUpsert, audit.actions[0])
}

func TestSignoffServiceUpsertLearnerOutsideCohort(t *testing.T) {
	svc := NewSignoffService(&signoffRepoStub{}, signoffMembers(), accessGuardStub{}, &auditRecorderStub{}, disabledCache(), nil, nil)

	_, err := svc.Upsert(context.Background(), instructorClaims(), "cohort-1", UpsertSignoffRequest{
		LearnerID:     "lrn-9",
		LessonID:      "les-1",
		CriterionCode: "C1.2",
		CriterionText: "Safely isolates the supply",
		Status:        "SUBMITTED",
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestSignoffServiceBulkRejectsStrayLearner(t *testing.T) {
	repo := &signoffRepoStub{}
	audit := &auditRecorderStub{}
	svc := NewSignoffService(repo, signoffMembers("lrn-1"), accessGuardStub{}, audit, disabledCache(), nil, nil)

	_, err := svc.BulkUpsert(context.Background(), instructorClaims(), "cohort-1", BulkUpsertSignoffsRequest{
		Records: []UpsertSignoffRequest{
			{LearnerID: "lrn-1", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "SUBMITTED"},
			{LearnerID: "lrn-9", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "SUBMITTED"},
		},
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrBatchRejected.Code, typed.Code)
	assert.Zero(t, repo.bulkCalls)
	assert.Empty(t, audit.actions)
}

func TestSignoffServiceBulkDuplicateTriple(t *testing.T) {
	svc := NewSignoffService(&signoffRepoStub{}, signoffMembers("lrn-1"), accessGuardStub{}, &auditRecorderStub{}, disabledCache(), nil, nil)

	_, err := svc.BulkUpsert(context.Background(), instructorClaims(), "cohort-1", BulkUpsertSignoffsRequest{
		Records: []UpsertSignoffRequest{
			{LearnerID: "lrn-1", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "SUBMITTED"},
			{LearnerID: "lrn-1", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "SIGNED_OFF"},
		},
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestSignoffServiceBulkAlwaysAudited(t *testing.T) {
	audit := &auditRecorderStub{}
	svc := NewSignoffService(&signoffRepoStub{}, signoffMembers("lrn-1", "lrn-2"), accessGuardStub{}, audit, disabledCache(), nil, nil)

	records, err := svc.BulkUpsert(context.Background(), instructorClaims(), "cohort-1", BulkUpsertSignoffsRequest{
		Records: []UpsertSignoffRequest{
			{LearnerID: "lrn-1", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "IN_PROGRESS"},
			{LearnerID: "lrn-2", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: "SIGNED_OFF"},
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionSignoffBulk, audit.actions[0])
	assert.Equal(t, 2, audit.details[0]["total"])
	assert.Equal(t, 1, audit.details[0]["in_progress"])
	assert.Equal(t, 1, audit.details[0]["signed_off"])
}

func TestSignoffServiceListGroupsByLearner(t *testing.T) {
	records := []models.AssessmentSignoffDetail{
		{AssessmentSignoff: models.AssessmentSignoff{ID: "a", LearnerID: "lrn-1", CriterionCode: "C1"}, LearnerName: "Ada"},
		{AssessmentSignoff: models.AssessmentSignoff{ID: "b", LearnerID: "lrn-2", CriterionCode: "C1"}, LearnerName: "Ben"},
		{AssessmentSignoff: models.AssessmentSignoff{ID: "c", LearnerID: "lrn-1", CriterionCode: "C2"}, LearnerName: "Ada"},
	}
	svc := NewSignoffService(&signoffRepoStub{records: records}, signoffMembers(), accessGuardStub{}, &auditRecorderStub{}, disabledCache(), nil, nil)

	result, _, err := svc.List(context.Background(), instructorClaims(), "cohort-1", ListSignoffsRequest{})
	require.NoError(t, err)
	require.Len(t, result.ByLearner, 2)
	assert.Equal(t, "Ada", result.ByLearner[0].LearnerName)
	assert.Len(t, result.ByLearner[0].Records, 2)
	assert.Len(t, result.ByLearner[1].Records, 1)
}

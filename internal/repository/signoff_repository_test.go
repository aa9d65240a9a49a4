package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
)

func signoffRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "learner_id", "lesson_id", "criterion_code", "criterion_text", "status",
		"evidence_notes", "evidence_files", "signed_off_at", "signed_off_by", "created_at", "updated_at",
	})
}

func TestSignoffRepositoryUpsertPreservesStamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSignoffRepository(db)

	signedAt := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO assessment_signoffs").
		WithArgs(sqlmock.AnyArg(), "lrn-1", "les-1", "C1.2", "Safely isolates the supply", models.SignoffStatusSignedOff,
			nil, sqlmock.AnyArg(), sqlmock.AnyArg(), "inst-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(signoffRows().
			AddRow("so-1", "lrn-1", "les-1", "C1.2", "Safely isolates the supply", "SIGNED_OFF", nil, "{}", signedAt, "inst-1", signedAt, signedAt))

	signedBy := "inst-1"
	stored, err := repo.Upsert(context.Background(), &models.AssessmentSignoff{
		LearnerID:     "lrn-1",
		LessonID:      "les-1",
		CriterionCode: "C1.2",
		CriterionText: "Safely isolates the supply",
		Status:        models.SignoffStatusSignedOff,
		SignedOffAt:   &signedAt,
		SignedOffBy:   &signedBy,
	})
	require.NoError(t, err)
	assert.Equal(t, "so-1", stored.ID)
	require.NotNil(t, stored.SignedOffBy)
	assert.Equal(t, "inst-1", *stored.SignedOffBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignoffRepositoryBulkUpsertCommitsOnce(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSignoffRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO assessment_signoffs").
		WillReturnRows(signoffRows().AddRow("so-1", "lrn-1", "les-1", "C1", "t", "SUBMITTED", nil, "{}", nil, nil, now, now))
	mock.ExpectQuery("INSERT INTO assessment_signoffs").
		WillReturnRows(signoffRows().AddRow("so-2", "lrn-2", "les-1", "C1", "t", "SUBMITTED", nil, "{}", nil, nil, now, now))
	mock.ExpectCommit()

	stored, err := repo.BulkUpsert(context.Background(), []models.AssessmentSignoff{
		{LearnerID: "lrn-1", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: models.SignoffStatusSubmitted},
		{LearnerID: "lrn-2", LessonID: "les-1", CriterionCode: "C1", CriterionText: "t", Status: models.SignoffStatusSubmitted},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "so-2", stored[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignoffRepositoryListForSample(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSignoffRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE learner_id IN ($1, $2) AND criterion_code IN ($3)")).
		WithArgs("lrn-1", "lrn-2", "C1.2").
		WillReturnRows(signoffRows().AddRow("so-1", "lrn-1", "les-1", "C1.2", "t", "VERIFIED", nil, "{}", now, "iqa-1", now, now))

	records, err := repo.ListForSample(context.Background(), []string{"lrn-1", "lrn-2"}, []string{"C1.2"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SignoffStatusVerified, records[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSignoffRepositoryListForSampleEmptyInputs(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSignoffRepository(db)

	records, err := repo.ListForSample(context.Background(), nil, []string{"C1.2"})
	require.NoError(t, err)
	assert.Nil(t, records)
}

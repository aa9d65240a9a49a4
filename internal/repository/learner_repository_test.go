package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLearnerRepositoryMembersOfCohort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearnerRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("lrn-1").AddRow("lrn-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM learners WHERE cohort_id = $1 AND id IN ($2,$3,$4)")).
		WithArgs("cohort-1", "lrn-1", "lrn-2", "lrn-9").
		WillReturnRows(rows)

	members, err := repo.MembersOfCohort(context.Background(), "cohort-1", []string{"lrn-1", "lrn-2", "lrn-9"})
	require.NoError(t, err)
	assert.True(t, members["lrn-1"])
	assert.True(t, members["lrn-2"])
	assert.False(t, members["lrn-9"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLearnerRepositoryMembersOfCohortSurfacesIterationError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLearnerRepository(db)

	broken := errors.New("connection reset")
	rows := sqlmock.NewRows([]string{"id"}).
		AddRow("lrn-1").
		AddRow("lrn-2").
		RowError(1, broken)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM learners WHERE cohort_id = $1 AND id IN ($2,$3)")).
		WithArgs("cohort-1", "lrn-1", "lrn-2").
		WillReturnRows(rows)

	_, err := repo.MembersOfCohort(context.Background(), "cohort-1", []string{"lrn-1", "lrn-2"})
	require.Error(t, err, "a mid-scan failure must not pass for a stray learner")
	assert.ErrorIs(t, err, broken)
	require.NoError(t, mock.ExpectationsWereMet())
}

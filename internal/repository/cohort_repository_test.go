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

func TestCohortRepositoryListScopesToInstructor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "name", "max_learners", "status", "created_at", "updated_at"}).
		AddRow("cohort-1", "crs-1", "Plumbing L2", 16, "IN_PROGRESS", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("id IN (SELECT cohort_id FROM instructor_assignments WHERE user_id = $1)")).
		WithArgs("inst-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM cohorts")).
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cohorts, total, err := repo.List(context.Background(), models.CohortFilter{InstructorID: "inst-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, cohorts, 1)
	assert.Equal(t, "Plumbing L2", cohorts[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortRepositoryCountLearnersIncludesWithdrawn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM learners WHERE cohort_id = $1")).
		WithArgs("cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, err := repo.CountLearners(context.Background(), "cohort-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortRepositoryIsInstructorAssigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM instructor_assignments WHERE user_id = $1 AND cohort_id = $2")).
		WithArgs("inst-1", "cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM instructor_assignments WHERE user_id = $1 AND cohort_id = $2")).
		WithArgs("inst-2", "cohort-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	assigned, err := repo.IsInstructorAssigned(context.Background(), "inst-1", "cohort-1")
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = repo.IsInstructorAssigned(context.Background(), "inst-2", "cohort-1")
	require.NoError(t, err)
	assert.False(t, assigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCohortRepositoryAssignInstructorUpsertsRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCohortRepository(db)

	mock.ExpectExec("INSERT INTO instructor_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assignment := &models.InstructorAssignment{
		CohortID: "cohort-1",
		UserID:   "inst-1",
		Role:     models.InstructorRoleLead,
	}
	require.NoError(t, repo.AssignInstructor(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

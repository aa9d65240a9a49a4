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

type sessionRepoStub struct {
	sessions map[string]*models.Session
	exists   bool
	created  *models.Session
	updated  *models.Session
}

func (s *sessionRepoStub) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	return nil, 0, nil
}

func (s *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if sess, ok := s.sessions[id]; ok {
		copied := *sess
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *sessionRepoStub) ExistsForLessonOnDate(ctx context.Context, cohortID, lessonID string, day time.Time, excludeID string) (bool, error) {
	return s.exists, nil
}

func (s *sessionRepoStub) Create(ctx context.Context, session *models.Session) error {
	session.ID = "ses-new"
	s.created = session
	return nil
}

func (s *sessionRepoStub) Update(ctx context.Context, session *models.Session) error {
	s.updated = session
	return nil
}

func newSessionService(repo *sessionRepoStub, audit *auditRecorderStub) *SessionService {
	svc := NewSessionService(repo, accessGuardStub{}, audit, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestSessionServiceCreateDefaultsToScheduled(t *testing.T) {
	repo := &sessionRepoStub{}
	audit := &auditRecorderStub{}
	svc := newSessionService(repo, audit)

	session, err := svc.Create(context.Background(), instructorClaims(), "cohort-1", CreateSessionRequest{
		LessonID:    "les-1",
		ScheduledAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	require.Len(t, audit.actions, 1)
	assert.Equal(t, models.AuditActionSessionCreate, audit.actions[0])
}

func TestSessionServiceCreateRejectsSameDayDuplicate(t *testing.T) {
	repo := &sessionRepoStub{exists: true}
	svc := newSessionService(repo, &auditRecorderStub{})

	_, err := svc.Create(context.Background(), instructorClaims(), "cohort-1", CreateSessionRequest{
		LessonID:    "les-1",
		ScheduledAt: time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC),
	})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Nil(t, repo.created)
}

func TestSessionServiceUpdateStampsActualStart(t *testing.T) {
	repo := &sessionRepoStub{sessions: map[string]*models.Session{
		"ses-1": {ID: "ses-1", CohortID: "cohort-1", LessonID: "les-1", Status: models.SessionStatusScheduled},
	}}
	svc := newSessionService(repo, &auditRecorderStub{})

	status := "in_progress"
	session, err := svc.Update(context.Background(), instructorClaims(), "cohort-1", "ses-1", UpdateSessionRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusInProgress, session.Status)
	require.NotNil(t, session.ActualStart)
	assert.Equal(t, svc.now(), *session.ActualStart)
	assert.Nil(t, session.ActualEnd)
}

func TestSessionServiceUpdateHonorsSuppliedActualEnd(t *testing.T) {
	repo := &sessionRepoStub{sessions: map[string]*models.Session{
		"ses-1": {ID: "ses-1", CohortID: "cohort-1", LessonID: "les-1", Status: models.SessionStatusInProgress},
	}}
	svc := newSessionService(repo, &auditRecorderStub{})

	status := "COMPLETED"
	supplied := time.Date(2024, 5, 2, 11, 45, 0, 0, time.UTC)
	session, err := svc.Update(context.Background(), instructorClaims(), "cohort-1", "ses-1", UpdateSessionRequest{
		Status:    &status,
		ActualEnd: &supplied,
	})
	require.NoError(t, err)
	require.NotNil(t, session.ActualEnd)
	assert.Equal(t, supplied, *session.ActualEnd)
}

func TestSessionServiceUpdateDoesNotRestamp(t *testing.T) {
	started := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	repo := &sessionRepoStub{sessions: map[string]*models.Session{
		"ses-1": {ID: "ses-1", CohortID: "cohort-1", LessonID: "les-1", Status: models.SessionStatusCancelled, ActualStart: &started},
	}}
	svc := newSessionService(repo, &auditRecorderStub{})

	status := "IN_PROGRESS"
	session, err := svc.Update(context.Background(), instructorClaims(), "cohort-1", "ses-1", UpdateSessionRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, started, *session.ActualStart)
}

func TestSessionServiceUpdateRescheduleConflicts(t *testing.T) {
	repo := &sessionRepoStub{
		exists: true,
		sessions: map[string]*models.Session{
			"ses-1": {ID: "ses-1", CohortID: "cohort-1", LessonID: "les-1", Status: models.SessionStatusScheduled, ScheduledAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)},
		},
	}
	svc := newSessionService(repo, &auditRecorderStub{})

	moved := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)
	_, err := svc.Update(context.Background(), instructorClaims(), "cohort-1", "ses-1", UpdateSessionRequest{ScheduledAt: &moved})
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
	assert.Nil(t, repo.updated)
}

func TestSessionServiceGetScopedToCohort(t *testing.T) {
	repo := &sessionRepoStub{sessions: map[string]*models.Session{
		"ses-1": {ID: "ses-1", CohortID: "cohort-2", LessonID: "les-1"},
	}}
	svc := newSessionService(repo, &auditRecorderStub{})

	_, err := svc.Get(context.Background(), instructorClaims(), "cohort-1", "ses-1")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
)

type reportAttendanceStub struct {
	records []models.AttendanceRecordDetail
	rates   []models.AttendanceRate
}

func (s reportAttendanceStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, error) {
	return s.records, nil
}

func (s reportAttendanceStub) Rates(ctx context.Context, cohortID, learnerID string) ([]models.AttendanceRate, error) {
	return s.rates, nil
}

type reportSignoffStub struct {
	records []models.AssessmentSignoffDetail
}

func (s reportSignoffStub) List(ctx context.Context, filter models.SignoffFilter) ([]models.AssessmentSignoffDetail, error) {
	return s.records, nil
}

func TestReportServiceAttendanceRegisterCSV(t *testing.T) {
	scheduled := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	rate := 75.0
	attendance := reportAttendanceStub{
		records: []models.AttendanceRecordDetail{
			{
				AttendanceRecord: models.AttendanceRecord{LearnerID: "lrn-1", Status: models.AttendanceStatusPresent},
				LearnerName:      "Ada Lin",
				LessonID:         "les-1",
				ScheduledAt:      scheduled,
			},
			{
				AttendanceRecord: models.AttendanceRecord{LearnerID: "lrn-2", Status: models.AttendanceStatusAbsent},
				LearnerName:      "Ben Cox",
				LessonID:         "les-1",
				ScheduledAt:      scheduled,
			},
		},
		rates: []models.AttendanceRate{{LearnerID: "lrn-1", Rate: &rate}},
	}
	svc := NewReportService(attendance, reportSignoffStub{}, accessGuardStub{}, 0, nil)

	report, err := svc.AttendanceRegister(context.Background(), instructorClaims(), "cohort-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "attendance-register-cohort-1.csv", report.FileName)
	assert.Equal(t, "text/csv", report.ContentType)

	body := string(report.Content)
	assert.True(t, strings.HasPrefix(body, "Learner,Lesson,Scheduled,Status,Arrived,Attendance Rate"))
	assert.Contains(t, body, "Ada Lin,les-1,2024-05-02,PRESENT,,75.0%")
	assert.Contains(t, body, "Ben Cox,les-1,2024-05-02,ABSENT,,n/a", "learners without completed sessions export as n/a")
}

func TestReportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewReportService(reportAttendanceStub{}, reportSignoffStub{}, accessGuardStub{}, 0, nil)

	_, err := svc.AttendanceRegister(context.Background(), instructorClaims(), "cohort-1", "xlsx")
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestReportServiceRowLimit(t *testing.T) {
	records := make([]models.AssessmentSignoffDetail, 3)
	svc := NewReportService(reportAttendanceStub{}, reportSignoffStub{records: records}, accessGuardStub{}, 2, nil)

	_, err := svc.SignoffRegister(context.Background(), instructorClaims(), "cohort-1", ReportFormatCSV)
	var typed *appErrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, typed.Code)
}

func TestReportServiceSignoffRegisterPDF(t *testing.T) {
	signedAt := time.Date(2024, 5, 2, 11, 0, 0, 0, time.UTC)
	signedBy := "inst-1"
	signoffs := reportSignoffStub{records: []models.AssessmentSignoffDetail{
		{
			AssessmentSignoff: models.AssessmentSignoff{
				LearnerID:     "lrn-1",
				LessonID:      "les-1",
				CriterionCode: "C1.2",
				Status:        models.SignoffStatusSignedOff,
				SignedOffAt:   &signedAt,
				SignedOffBy:   &signedBy,
			},
			LearnerName: "Ada Lin",
		},
	}}
	svc := NewReportService(reportAttendanceStub{}, signoffs, accessGuardStub{}, 0, nil)

	report, err := svc.SignoffRegister(context.Background(), instructorClaims(), "cohort-1", ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "signoff-register-cohort-1.pdf", report.FileName)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, strings.HasPrefix(string(report.Content), "%PDF"))
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/export"
)

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type reportAttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, error)
	Rates(ctx context.Context, cohortID, learnerID string) ([]models.AttendanceRate, error)
}

type reportSignoffReader interface {
	List(ctx context.Context, filter models.SignoffFilter) ([]models.AssessmentSignoffDetail, error)
}

// Report is a rendered register ready to stream to the client.
type Report struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService renders the compliance registers training providers hand to
// external verifiers: the attendance register and the sign-off register.
type ReportService struct {
	attendance reportAttendanceReader
	signoffs   reportSignoffReader
	access     accessGuard
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	maxRows    int
	logger     *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(attendance reportAttendanceReader, signoffs reportSignoffReader, access accessGuard, maxRows int, logger *zap.Logger) *ReportService {
	if maxRows <= 0 {
		maxRows = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		attendance: attendance,
		signoffs:   signoffs,
		access:     access,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		maxRows:    maxRows,
		logger:     logger,
	}
}

// AttendanceRegister renders the cohort's attendance register.
func (s *ReportService) AttendanceRegister(ctx context.Context, claims *models.JWTClaims, cohortID string, format ReportFormat) (*Report, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	format = ReportFormat(strings.ToLower(string(format)))
	if err := validFormat(format); err != nil {
		return nil, err
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{CohortID: cohortID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance register")
	}
	if len(records) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("register exceeds the %d row export limit", s.maxRows))
	}
	rates, err := s.attendance.Rates(ctx, cohortID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance rates")
	}
	rateByLearner := map[string]string{}
	for _, rate := range rates {
		if rate.Rate != nil {
			rateByLearner[rate.LearnerID] = fmt.Sprintf("%.1f%%", *rate.Rate)
		}
	}

	dataset := export.Dataset{
		Headers: []string{"Learner", "Lesson", "Scheduled", "Status", "Arrived", "Attendance Rate"},
	}
	for _, rec := range records {
		arrived := ""
		if rec.ArrivedAt != nil {
			arrived = rec.ArrivedAt.Format(time.RFC3339)
		}
		rate, ok := rateByLearner[rec.LearnerID]
		if !ok {
			rate = "n/a"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Learner":         rec.LearnerName,
			"Lesson":          rec.LessonID,
			"Scheduled":       rec.ScheduledAt.Format("2006-01-02"),
			"Status":          string(rec.Status),
			"Arrived":         arrived,
			"Attendance Rate": rate,
		})
	}
	return s.render(dataset, "attendance register", fmt.Sprintf("attendance-register-%s", cohortID), format)
}

// SignoffRegister renders the cohort's assessment sign-off register.
func (s *ReportService) SignoffRegister(ctx context.Context, claims *models.JWTClaims, cohortID string, format ReportFormat) (*Report, error) {
	if err := s.access.Require(ctx, claims, cohortID); err != nil {
		return nil, err
	}
	format = ReportFormat(strings.ToLower(string(format)))
	if err := validFormat(format); err != nil {
		return nil, err
	}
	records, err := s.signoffs.List(ctx, models.SignoffFilter{CohortID: cohortID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sign-off register")
	}
	if len(records) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("register exceeds the %d row export limit", s.maxRows))
	}

	dataset := export.Dataset{
		Headers: []string{"Learner", "Lesson", "Criterion", "Status", "Signed Off At", "Signed Off By"},
	}
	for _, rec := range records {
		signedAt, signedBy := "", ""
		if rec.SignedOffAt != nil {
			signedAt = rec.SignedOffAt.Format(time.RFC3339)
		}
		if rec.SignedOffBy != nil {
			signedBy = *rec.SignedOffBy
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Learner":       rec.LearnerName,
			"Lesson":        rec.LessonID,
			"Criterion":     rec.CriterionCode,
			"Status":        string(rec.Status),
			"Signed Off At": signedAt,
			"Signed Off By": signedBy,
		})
	}
	return s.render(dataset, "assessment sign-off register", fmt.Sprintf("signoff-register-%s", cohortID), format)
}

func (s *ReportService) render(dataset export.Dataset, title, baseName string, format ReportFormat) (*Report, error) {
	switch format {
	case ReportFormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &Report{FileName: baseName + ".csv", ContentType: "text/csv", Content: content}, nil
	case ReportFormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &Report{FileName: baseName + ".pdf", ContentType: "application/pdf", Content: content}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported format")
}

func validFormat(format ReportFormat) error {
	switch format {
	case ReportFormatCSV, ReportFormatPDF:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

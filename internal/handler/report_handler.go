package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/service"
	"github.com/skillbase/cohort-api/pkg/response"
)

// ReportHandler exposes compliance register exports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// AttendanceRegister godoc
// @Summary Export the attendance register
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Cohort ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /cohorts/{id}/reports/attendance-register [get]
func (h *ReportHandler) AttendanceRegister(c *gin.Context) {
	h.stream(c, func(format service.ReportFormat) (*service.Report, error) {
		return h.reports.AttendanceRegister(c.Request.Context(), claimsFromContext(c), c.Param("id"), format)
	})
}

// SignoffRegister godoc
// @Summary Export the sign-off register
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Cohort ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /cohorts/{id}/reports/signoff-register [get]
func (h *ReportHandler) SignoffRegister(c *gin.Context) {
	h.stream(c, func(format service.ReportFormat) (*service.Report, error) {
		return h.reports.SignoffRegister(c.Request.Context(), claimsFromContext(c), c.Param("id"), format)
	})
}

func (h *ReportHandler) stream(c *gin.Context, render func(service.ReportFormat) (*service.Report, error)) {
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	report, err := render(format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(200, report.ContentType, report.Content)
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/middleware"
	"github.com/skillbase/cohort-api/internal/service"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// AttendanceHandler exposes attendance marking and listing endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records with stats and rates
// @Tags Attendance
// @Produce json
// @Param id path string true "Cohort ID"
// @Param sessionId query string false "Filter by session"
// @Param learnerId query string false "Filter by learner"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	req := service.ListAttendanceRequest{
		SessionID: c.Query("sessionId"),
		LearnerID: c.Query("learnerId"),
		Status:    optionalQuery(c, "status"),
	}
	start := time.Now()
	result, cacheHit, err := h.attendance.List(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Mark godoc
// @Summary Mark attendance for one learner
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Mark(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkMark godoc
// @Summary Mark a whole session register atomically
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.BulkMarkAttendanceRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req service.BulkMarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.attendance.BulkMark(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/service"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// SessionHandler exposes session schedule endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List cohort sessions
// @Tags Sessions
// @Produce json
// @Param id path string true "Cohort ID"
// @Param lessonId query string false "Filter by lesson"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "RFC3339 lower bound"
// @Param dateTo query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	req := service.ListSessionsRequest{
		LessonID:  c.Query("lessonId"),
		Status:    optionalQuery(c, "status"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if raw := c.Query("dateFrom"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			req.DateFrom = &parsed
		}
	}
	if raw := c.Query("dateTo"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			req.DateTo = &parsed
		}
	}
	sessions, pagination, err := h.sessions.List(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Cohort ID"
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/sessions/{sessionId} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Schedule session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts/{id}/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update or transition session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param sessionId path string true "Session ID"
// @Param payload body service.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/sessions/{sessionId} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sessionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/service"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// LearnerHandler exposes cohort roster endpoints.
type LearnerHandler struct {
	learners *service.LearnerService
}

// NewLearnerHandler constructs the handler.
func NewLearnerHandler(learners *service.LearnerService) *LearnerHandler {
	return &LearnerHandler{learners: learners}
}

// List godoc
// @Summary List cohort learners
// @Tags Learners
// @Produce json
// @Param id path string true "Cohort ID"
// @Param status query string false "Filter by status"
// @Param search query string false "Search name or email"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/learners [get]
func (h *LearnerHandler) List(c *gin.Context) {
	req := service.ListLearnersRequest{
		Status:    optionalQuery(c, "status"),
		Search:    c.Query("search"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	learners, pagination, err := h.learners.List(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learners, pagination)
}

// Get godoc
// @Summary Get learner
// @Tags Learners
// @Produce json
// @Param id path string true "Cohort ID"
// @Param learnerId path string true "Learner ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/learners/{learnerId} [get]
func (h *LearnerHandler) Get(c *gin.Context) {
	learner, err := h.learners.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("learnerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learner, nil)
}

// Enroll godoc
// @Summary Enroll learner into cohort
// @Tags Learners
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.EnrollLearnerRequest true "Learner payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts/{id}/learners [post]
func (h *LearnerHandler) Enroll(c *gin.Context) {
	var req service.EnrollLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	learner, err := h.learners.Enroll(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, learner)
}

// Update godoc
// @Summary Update learner
// @Tags Learners
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param learnerId path string true "Learner ID"
// @Param payload body service.UpdateLearnerRequest true "Learner payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/learners/{learnerId} [put]
func (h *LearnerHandler) Update(c *gin.Context) {
	var req service.UpdateLearnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	learner, err := h.learners.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("learnerId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, learner, nil)
}

// Withdraw godoc
// @Summary Withdraw learner (soft delete)
// @Tags Learners
// @Param id path string true "Cohort ID"
// @Param learnerId path string true "Learner ID"
// @Success 204
// @Router /cohorts/{id}/learners/{learnerId} [delete]
func (h *LearnerHandler) Withdraw(c *gin.Context) {
	if err := h.learners.Withdraw(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("learnerId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// HardDelete godoc
// @Summary Permanently delete learner
// @Tags Learners
// @Param id path string true "Cohort ID"
// @Param learnerId path string true "Learner ID"
// @Success 204
// @Router /cohorts/{id}/learners/{learnerId}/purge [delete]
func (h *LearnerHandler) HardDelete(c *gin.Context) {
	if err := h.learners.HardDelete(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("learnerId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

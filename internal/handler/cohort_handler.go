package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/service"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// CohortHandler exposes cohort and instructor-assignment endpoints.
type CohortHandler struct {
	cohorts *service.CohortService
}

// NewCohortHandler constructs the handler.
func NewCohortHandler(cohorts *service.CohortService) *CohortHandler {
	return &CohortHandler{cohorts: cohorts}
}

// List godoc
// @Summary List cohorts visible to the caller
// @Tags Cohorts
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /cohorts [get]
func (h *CohortHandler) List(c *gin.Context) {
	req := service.ListCohortsRequest{
		CourseID:  c.Query("courseId"),
		Status:    optionalQuery(c, "status"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	cohorts, pagination, err := h.cohorts.List(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, pagination)
}

// Get godoc
// @Summary Get cohort detail
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id} [get]
func (h *CohortHandler) Get(c *gin.Context) {
	detail, err := h.cohorts.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param payload body service.CreateCohortRequest true "Cohort payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts [post]
func (h *CohortHandler) Create(c *gin.Context) {
	var req service.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.cohorts.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cohort)
}

// Update godoc
// @Summary Update cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.UpdateCohortRequest true "Cohort payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id} [put]
func (h *CohortHandler) Update(c *gin.Context) {
	var req service.UpdateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cohort, err := h.cohorts.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Delete godoc
// @Summary Delete cohort
// @Tags Cohorts
// @Param id path string true "Cohort ID"
// @Success 204
// @Router /cohorts/{id} [delete]
func (h *CohortHandler) Delete(c *gin.Context) {
	if err := h.cohorts.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListInstructors godoc
// @Summary List cohort instructors
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/instructors [get]
func (h *CohortHandler) ListInstructors(c *gin.Context) {
	instructors, err := h.cohorts.ListInstructors(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, instructors, nil)
}

// AssignInstructor godoc
// @Summary Assign instructor to cohort
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.AssignInstructorRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts/{id}/instructors [post]
func (h *CohortHandler) AssignInstructor(c *gin.Context) {
	var req service.AssignInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.cohorts.AssignInstructor(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// UnassignInstructor godoc
// @Summary Remove instructor from cohort
// @Tags Cohorts
// @Param id path string true "Cohort ID"
// @Param userId path string true "Instructor user ID"
// @Success 204
// @Router /cohorts/{id}/instructors/{userId} [delete]
func (h *CohortHandler) UnassignInstructor(c *gin.Context) {
	if err := h.cohorts.UnassignInstructor(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

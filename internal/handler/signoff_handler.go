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

// SignoffHandler exposes assessment sign-off endpoints.
type SignoffHandler struct {
	signoffs *service.SignoffService
}

// NewSignoffHandler constructs the handler.
func NewSignoffHandler(signoffs *service.SignoffService) *SignoffHandler {
	return &SignoffHandler{signoffs: signoffs}
}

// List godoc
// @Summary List sign-offs with stats and the by-learner matrix
// @Tags Signoffs
// @Produce json
// @Param id path string true "Cohort ID"
// @Param learnerId query string false "Filter by learner"
// @Param lessonId query string false "Filter by lesson"
// @Param criterionCode query string false "Filter by criterion"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/signoffs [get]
func (h *SignoffHandler) List(c *gin.Context) {
	req := service.ListSignoffsRequest{
		LearnerID:     c.Query("learnerId"),
		LessonID:      c.Query("lessonId"),
		CriterionCode: c.Query("criterionCode"),
		Status:        optionalQuery(c, "status"),
	}
	start := time.Now()
	result, cacheHit, err := h.signoffs.List(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
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

// Upsert godoc
// @Summary Create or replace a sign-off record
// @Tags Signoffs
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.UpsertSignoffRequest true "Sign-off payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/signoffs [post]
func (h *SignoffHandler) Upsert(c *gin.Context) {
	var req service.UpsertSignoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.signoffs.Upsert(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Bulk godoc
// @Summary Apply a batch of sign-offs atomically
// @Tags Signoffs
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.BulkUpsertSignoffsRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/signoffs/bulk [post]
func (h *SignoffHandler) Bulk(c *gin.Context) {
	var req service.BulkUpsertSignoffsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.signoffs.BulkUpsert(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

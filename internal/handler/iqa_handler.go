package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/service"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// IqaHandler exposes IQA sampling endpoints.
type IqaHandler struct {
	iqa *service.IqaService
}

// NewIqaHandler constructs the handler.
func NewIqaHandler(iqa *service.IqaService) *IqaHandler {
	return &IqaHandler{iqa: iqa}
}

// List godoc
// @Summary List IQA samples for a cohort
// @Tags IQA
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/iqa-samples [get]
func (h *IqaHandler) List(c *gin.Context) {
	samples, err := h.iqa.List(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, samples, nil)
}

// Get godoc
// @Summary Get IQA sample detail
// @Tags IQA
// @Produce json
// @Param id path string true "Cohort ID"
// @Param sampleId path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/iqa-samples/{sampleId} [get]
func (h *IqaHandler) Get(c *gin.Context) {
	detail, err := h.iqa.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sampleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Plan an IQA sample
// @Tags IQA
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body service.CreateIqaSampleRequest true "Sample payload"
// @Success 201 {object} response.Envelope
// @Router /cohorts/{id}/iqa-samples [post]
func (h *IqaHandler) Create(c *gin.Context) {
	var req service.CreateIqaSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sample, err := h.iqa.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sample)
}

// Update godoc
// @Summary Progress an IQA sample
// @Tags IQA
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param sampleId path string true "Sample ID"
// @Param payload body service.UpdateIqaSampleRequest true "Sample payload"
// @Success 200 {object} response.Envelope
// @Router /cohorts/{id}/iqa-samples/{sampleId} [put]
func (h *IqaHandler) Update(c *gin.Context) {
	var req service.UpdateIqaSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sample, err := h.iqa.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sampleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sample, nil)
}

// Delete godoc
// @Summary Delete an IQA sample
// @Tags IQA
// @Param id path string true "Cohort ID"
// @Param sampleId path string true "Sample ID"
// @Success 204
// @Router /cohorts/{id}/iqa-samples/{sampleId} [delete]
func (h *IqaHandler) Delete(c *gin.Context) {
	if err := h.iqa.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("sampleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

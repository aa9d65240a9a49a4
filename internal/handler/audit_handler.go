package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/models"
	"github.com/skillbase/cohort-api/internal/service"
	"github.com/skillbase/cohort-api/pkg/response"
)

// AuditHandler exposes the audit trail to admins.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param actorId query string false "Filter by actor"
// @Param action query string false "Filter by action"
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		ActorID:    c.Query("actorId"),
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "pageSize", 50),
	}
	entries, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

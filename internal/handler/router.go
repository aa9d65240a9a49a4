package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/middleware"
	"github.com/skillbase/cohort-api/internal/models"
	"github.com/skillbase/cohort-api/internal/service"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Cohorts    *CohortHandler
	Learners   *LearnerHandler
	Sessions   *SessionHandler
	Attendance *AttendanceHandler
	Signoffs   *SignoffHandler
	Iqa        *IqaHandler
	Reports    *ReportHandler
	Audit      *AuditHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API onto the router group. Every cohort route
// requires a valid token and a staff role; fine-grained cohort assignment is
// enforced inside the services.
func RegisterRoutes(api *gin.RouterGroup, tokens *service.TokenService, h Handlers) {
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleInstructor)
	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	cohorts := secured.Group("/cohorts", staff)
	cohorts.GET("", h.Cohorts.List)
	cohorts.POST("", adminOnly, h.Cohorts.Create)
	cohorts.GET("/:id", h.Cohorts.Get)
	cohorts.PUT("/:id", h.Cohorts.Update)
	cohorts.DELETE("/:id", adminOnly, h.Cohorts.Delete)

	cohorts.GET("/:id/instructors", h.Cohorts.ListInstructors)
	cohorts.POST("/:id/instructors", adminOnly, h.Cohorts.AssignInstructor)
	cohorts.DELETE("/:id/instructors/:userId", adminOnly, h.Cohorts.UnassignInstructor)

	cohorts.GET("/:id/learners", h.Learners.List)
	cohorts.POST("/:id/learners", h.Learners.Enroll)
	cohorts.GET("/:id/learners/:learnerId", h.Learners.Get)
	cohorts.PUT("/:id/learners/:learnerId", h.Learners.Update)
	cohorts.DELETE("/:id/learners/:learnerId", h.Learners.Withdraw)
	cohorts.DELETE("/:id/learners/:learnerId/purge", adminOnly, h.Learners.HardDelete)

	cohorts.GET("/:id/sessions", h.Sessions.List)
	cohorts.POST("/:id/sessions", h.Sessions.Create)
	cohorts.GET("/:id/sessions/:sessionId", h.Sessions.Get)
	cohorts.PUT("/:id/sessions/:sessionId", h.Sessions.Update)

	cohorts.GET("/:id/attendance", h.Attendance.List)
	cohorts.POST("/:id/attendance", h.Attendance.Mark)
	cohorts.POST("/:id/attendance/bulk", h.Attendance.BulkMark)

	cohorts.GET("/:id/signoffs", h.Signoffs.List)
	cohorts.POST("/:id/signoffs", h.Signoffs.Upsert)
	cohorts.POST("/:id/signoffs/bulk", h.Signoffs.Bulk)

	cohorts.GET("/:id/iqa-samples", h.Iqa.List)
	cohorts.POST("/:id/iqa-samples", h.Iqa.Create)
	cohorts.GET("/:id/iqa-samples/:sampleId", h.Iqa.Get)
	cohorts.PUT("/:id/iqa-samples/:sampleId", h.Iqa.Update)
	cohorts.DELETE("/:id/iqa-samples/:sampleId", adminOnly, h.Iqa.Delete)

	if h.Reports != nil {
		cohorts.GET("/:id/reports/attendance-register", h.Reports.AttendanceRegister)
		cohorts.GET("/:id/reports/signoff-register", h.Reports.SignoffRegister)
	}

	secured.GET("/audit-logs", adminOnly, h.Audit.List)
}

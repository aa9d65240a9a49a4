package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/models"
	appErrors "github.com/skillbase/cohort-api/pkg/errors"
	"github.com/skillbase/cohort-api/pkg/response"
)

// RequireRoles blocks callers whose role is not in the allowed set. Cohort
// assignment checks stay in the services; this is only the coarse role gate
// for routes no learner or outside role should ever reach.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required"))
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

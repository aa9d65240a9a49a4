package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillbase/cohort-api/internal/middleware"
	"github.com/skillbase/cohort-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func optionalQuery(c *gin.Context, key string) *string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	return &raw
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dropout-copilot-api/internal/middleware"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.Claims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.Claims)
	if !ok {
		return nil
	}
	return claims
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/babetranslator-backend/internal/domain/user"
)

type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler { return &HealthHandler{version: version} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Babe Translator API",
		"version": h.version,
	})
}

// GET /api/personality-types
func (h *HealthHandler) PersonalityTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"personality_types": user.PersonalityTypes})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/http/dto"
)

type HealthHandler struct {
	tracker config.TrackerConfig
	storage config.StorageConfig
}

func NewHealthHandler(tracker config.TrackerConfig, storage config.StorageConfig) *HealthHandler {
	return &HealthHandler{tracker: tracker, storage: storage}
}

// Check reports which settings are present. It never calls upstream services.
func (h *HealthHandler) Check(c *gin.Context) {
	hasAPIKey := h.tracker.APIKey != ""
	hasTeamID := h.tracker.TeamID != ""

	c.JSON(http.StatusOK, dto.HealthResponse{
		OK:                hasAPIKey && hasTeamID,
		HasAPIKey:         hasAPIKey,
		HasTeamID:         hasTeamID,
		StorageConfigured: h.storage.Enabled(),
	})
}

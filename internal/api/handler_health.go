package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Welcome handles GET /
func (h *Handler) Welcome(c *gin.Context) {
	c.String(http.StatusOK, "Welcome To CUDorms")
}

// Health handles GET /api/health
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("store ping failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Database unreachable"})
		return
	}
	if err := h.cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("cache ping failed")
		c.JSON(http.StatusOK, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

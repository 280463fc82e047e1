package handlers

import (
	"net/http"

	"telemetry-server/apperr"
	"telemetry-server/auth"
	httpHandler "telemetry-server/handlers/http"
	"telemetry-server/services"

	"github.com/gin-gonic/gin"
)

type CacheHandler struct {
	janitor *services.CacheJanitor
}

func NewCacheHandler(janitor *services.CacheJanitor) *CacheHandler {
	return &CacheHandler{janitor: janitor}
}

// GetCacheStats GET /api/v1/cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	if err := auth.RequireAdmin(httpHandler.PrincipalFrom(c)); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err), "kind": apperr.KindOf(err)})
		return
	}
	if h.janitor == nil {
		c.JSON(http.StatusOK, gin.H{"backend": "redis"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backend": "memory", "stats": h.janitor.Stats()})
}

// PurgeCache POST /api/v1/cache/purge
func (h *CacheHandler) PurgeCache(c *gin.Context) {
	if err := auth.RequireAdmin(httpHandler.PrincipalFrom(c)); err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err), "kind": apperr.KindOf(err)})
		return
	}
	removed := 0
	if h.janitor != nil {
		removed = h.janitor.RunOnce()
	}
	c.JSON(http.StatusOK, gin.H{"status": "processed", "removed": removed})
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PingFunc probes one backing dependency.
type PingFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	dbPing    PingFunc
	cachePing PingFunc
}

// NewHealthHandler constructs the probe handler. cachePing may be nil when
// the cache is disabled.
func NewHealthHandler(dbPing, cachePing PingFunc) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, cachePing: cachePing}
}

// Health reports process liveness.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness: Postgres must answer, and Redis too when the
// cache is enabled.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.dbPing(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "postgres": err.Error()})
		return
	}
	if h.cachePing != nil {
		if err := h.cachePing(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// internal/api/health.go
package api

import (
	"net/http"

	"aggregation-gateway/internal/catalog"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	catalog *catalog.Catalog
	version string
}

func NewHealthHandler(c *catalog.Catalog, version string) *HealthHandler {
	return &HealthHandler{catalog: c, version: version}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Ready reports whether the catalog has been loaded.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "records": h.catalog.Counts()})
}

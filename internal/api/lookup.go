// internal/api/lookup.go
package api

import (
	"net/http"

	"aggregation-gateway/internal/catalog"

	"github.com/gin-gonic/gin"
)

// LookupHandler serves GET /<kind>/:id from the catalog.
type LookupHandler struct {
	catalog *catalog.Catalog
}

func NewLookupHandler(c *catalog.Catalog) *LookupHandler {
	return &LookupHandler{catalog: c}
}

func (h *LookupHandler) Handle(kind string) gin.HandlerFunc {
	notFound := h.catalog.Singular(kind) + " doesn't exist"
	return func(c *gin.Context) {
		rec, ok := h.catalog.Lookup(kind, c.Param("id"))
		if !ok {
			c.Data(http.StatusNotFound, "text/plain; charset=utf-8", []byte(notFound))
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", rec)
	}
}

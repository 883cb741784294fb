// internal/api/server.go
package api

import (
	"net/http"

	"aggregation-gateway/internal/common/config"
)

// NewServer builds the HTTP server. WriteTimeout stays unset because
// /multiple and the large resource stream for as long as data flows.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: config.GetDuration(cfg.ReadHeaderTimeout),
	}
}

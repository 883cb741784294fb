// internal/api/router.go
package api

import (
	"aggregation-gateway/internal/aggregator"
	"aggregation-gateway/internal/catalog"
	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Catalog       *catalog.Catalog
	Aggregator    *aggregator.Aggregator
	Resolver      *aggregator.Resolver
	DefaultMode   string
	LargeResource config.LargeResourceConfig
	Logger        logger.Logger
	Version       string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	errHandler := apperrors.NewErrorHandler(cfg.Logger)

	r := gin.New()
	r.Use(AttachRequestID())
	r.Use(errHandler.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(Metrics())

	health := NewHealthHandler(cfg.Catalog, cfg.Version)
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Catalog != nil {
		lookup := NewLookupHandler(cfg.Catalog)
		for _, kind := range cfg.Catalog.Kinds() {
			r.GET("/"+kind+"/:id", lookup.Handle(kind))
		}
	}

	if cfg.Aggregator != nil {
		multiple := NewMultipleHandler(cfg.Resolver, cfg.Aggregator, cfg.DefaultMode, cfg.Logger, errHandler)
		r.GET("/multiple", multiple.Handle)
	}

	large := NewLargeHandler(cfg.LargeResource, cfg.Logger, errHandler)
	route := cfg.LargeResource.Route
	if route == "" {
		route = "/large"
	}
	r.GET(route, large.Handle)

	return r
}

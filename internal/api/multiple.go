// internal/api/multiple.go
package api

import (
	"errors"
	"net/http"
	"strings"

	"aggregation-gateway/internal/aggregator"
	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/common/logger"

	"github.com/gin-gonic/gin"
)

const headerAggregateMode = "X-Aggregate-Mode"

// MultipleHandler serves GET /multiple. The response is always 200 with a
// JSON object; sub-request failures are reported inside it.
type MultipleHandler struct {
	resolver    *aggregator.Resolver
	aggregator  *aggregator.Aggregator
	defaultMode string
	logger      logger.Logger
	errHandler  *apperrors.ErrorHandler
}

func NewMultipleHandler(resolver *aggregator.Resolver, agg *aggregator.Aggregator, defaultMode string, log logger.Logger, errHandler *apperrors.ErrorHandler) *MultipleHandler {
	if defaultMode != aggregator.ModeBuffered {
		defaultMode = aggregator.ModeStreaming
	}
	return &MultipleHandler{
		resolver:    resolver,
		aggregator:  agg,
		defaultMode: defaultMode,
		logger:      log,
		errHandler:  errHandler,
	}
}

func (h *MultipleHandler) Handle(c *gin.Context) {
	specs, duplicates := aggregator.ParseQuery(c.Request.URL.RawQuery)
	if len(duplicates) > 0 {
		h.logger.Warn("duplicate sub-request names skipped", map[string]interface{}{
			"names":      duplicates,
			"request_id": c.GetString("request_id"),
		})
	}
	targets := h.resolver.ResolveAll(specs)

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)

	err := h.aggregator.Aggregate(c.Request.Context(), c.Writer, targets, h.mode(c))
	switch {
	case err == nil:
	case errors.Is(err, aggregator.ErrClientGone):
		h.logger.Info("client disconnected during /multiple", map[string]interface{}{
			"request_id": c.GetString("request_id"),
		})
		c.Abort()
	default:
		h.errHandler.HandleInternalFault(c, err)
	}
}

func (h *MultipleHandler) mode(c *gin.Context) string {
	switch strings.ToLower(strings.TrimSpace(c.GetHeader(headerAggregateMode))) {
	case aggregator.ModeBuffered:
		return aggregator.ModeBuffered
	case aggregator.ModeStreaming:
		return aggregator.ModeStreaming
	default:
		return h.defaultMode
	}
}

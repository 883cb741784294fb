// internal/common/errors/handler.go
package errors

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns gateway faults into the fixed 500 response.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleInternalFault logs err and, when nothing was written yet, replies 500.
func (h *ErrorHandler) HandleInternalFault(c *gin.Context, err error) {
	stdErr := h.normalizeError(err)
	h.logError(c, stdErr)

	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusInternalServerError, InternalErrorText)
	c.Abort()
}

// Recovery is a gin middleware that routes panics through HandleInternalFault.
func (h *ErrorHandler) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.HandleInternalFault(c, panicError(recovered))
	})
}

// normalizeError ensures we always have a StandardError
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternalFault,
		Message:   "Unexpected error",
		Details:   errorText(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(c *gin.Context, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("An error occurred while processing request", map[string]interface{}{
		"url":           c.Request.URL.String(),
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"requestId":     c.GetString("request_id"),
	})
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

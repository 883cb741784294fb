// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func TestTimeoutMessage(t *testing.T) {
	assert.Equal(t, "timeout of 5000ms exceeded", TimeoutMessage(5*time.Second))
	assert.Equal(t, "timeout of 250ms exceeded", TimeoutMessage(250*time.Millisecond))

	err := NewTimeoutError("http://localhost/customers/1", 5*time.Second)
	assert.Equal(t, ErrCodeTimeout, err.Code)
	assert.Equal(t, "timeout of 5000ms exceeded", err.Message)
	assert.True(t, err.Retryable)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, CodeOf(NewNotFoundError("customers", "9")))
	assert.Equal(t, ErrCodeNetworkError, CodeOf(fmt.Errorf("wrapped: %w", NewNetworkError("x", errors.New("refused")))))
	assert.Equal(t, ErrCodeInternalFault, CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("http://127.0.0.1:1", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Details, "connection refused")
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeNotFound, "LOOKUP"},
		{ErrCodeNetworkError, "TRANSPORT"},
		{ErrCodeTimeout, "TRANSPORT"},
		{ErrCodeUpstreamHTTPError, "UPSTREAM"},
		{ErrCodeStreamInterrupted, "UPSTREAM"},
		{ErrCodeCatalogLoadFailed, "CATALOG"},
		{ErrCodeInvalidRecord, "CATALOG"},
		{ErrCodeConfigInvalid, "CONFIG"},
		{ErrCodeInternalFault, "OTHER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCategory(tt.code))
		})
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeTimeout))
	assert.True(t, IsRetryableErrorCode(ErrCodeNetworkError))
	assert.False(t, IsRetryableErrorCode(ErrCodeNotFound))
	assert.False(t, IsRetryableErrorCode(ErrCodeInternalFault))
}

func TestFromPanic(t *testing.T) {
	assert.Nil(t, FromPanic(nil))

	err := FromPanic("boom")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternalFault, err.Code)
	assert.Equal(t, "panic: boom", err.Details)

	cause := errors.New("typed")
	err = FromPanic(cause)
	assert.True(t, errors.Is(err, cause))
}

// ==========================
// ErrorHandler
// ==========================

func TestErrorHandler_Recovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	r := gin.New()
	r.Use(h.Recovery())
	r.GET("/boom", func(c *gin.Context) {
		panic("unexpected")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, InternalErrorText, rec.Body.String())
	require.Len(t, log.messages, 1)
	assert.Equal(t, "/boom", log.fields[0]["url"])
	assert.Equal(t, string(ErrCodeInternalFault), log.fields[0]["errorCode"])
}

func TestErrorHandler_HandleInternalFault_AfterWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewErrorHandler(&recordingLogger{})

	r := gin.New()
	r.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "{")
		h.HandleInternalFault(c, errors.New("late failure"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/partial", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{", rec.Body.String())
}

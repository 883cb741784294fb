// internal/api/large.go
package api

import (
	"io"
	"net/http"
	"os"
	"strconv"

	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/common/logger"

	"github.com/gin-gonic/gin"
)

// LargeHandler streams a large JSON resource: the configured file verbatim,
// or a generated array of roughly SyntheticBytes when no file is set.
type LargeHandler struct {
	cfg        config.LargeResourceConfig
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewLargeHandler(cfg config.LargeResourceConfig, log logger.Logger, errHandler *apperrors.ErrorHandler) *LargeHandler {
	return &LargeHandler{cfg: cfg, logger: log, errHandler: errHandler}
}

func (h *LargeHandler) Handle(c *gin.Context) {
	c.Header("Content-Type", "application/json")

	if h.cfg.Path == "" {
		c.Status(http.StatusOK)
		if _, err := WriteSyntheticJSON(c.Writer, h.cfg.SyntheticBytes); err != nil {
			h.logger.Warn("synthetic resource write failed", map[string]interface{}{"error": err.Error()})
			c.Abort()
		}
		return
	}

	f, err := os.Open(h.cfg.Path)
	if err != nil {
		h.errHandler.HandleInternalFault(c, apperrors.NewInternalFaultError(err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.errHandler.HandleInternalFault(c, apperrors.NewInternalFaultError(err))
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

const syntheticPayload = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// WriteSyntheticJSON writes a JSON array of small objects whose total size
// is at least size bytes (an empty array for size <= 2).
func WriteSyntheticJSON(w io.Writer, size int64) (int64, error) {
	const flushAt = 32 * 1024
	buf := make([]byte, 0, flushAt+256)
	var written int64

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		n, err := w.Write(buf)
		written += int64(n)
		buf = buf[:0]
		if f, ok := w.(http.Flusher); ok && err == nil {
			f.Flush()
		}
		return err
	}

	buf = append(buf, '[')
	for i := int64(0); written+int64(len(buf))+1 < size; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, `{"index":`...)
		buf = strconv.AppendInt(buf, i, 10)
		buf = append(buf, `,"payload":"`...)
		buf = append(buf, syntheticPayload...)
		buf = append(buf, `"}`...)
		if len(buf) >= flushAt {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	buf = append(buf, ']')
	return written, flush()
}

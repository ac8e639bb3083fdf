package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/foxseedlab/attendance/internal/apperror"
	"github.com/foxseedlab/attendance/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestID tags the request context with an id taken from X-Request-ID or
// freshly generated, and echoes it back.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		ctx := logging.AppendCtx(c.Request.Context(), slog.String("request_id", id))
		ctx = logging.AppendCtx(ctx, slog.String("method", c.Request.Method))
		ctx = logging.AppendCtx(ctx, slog.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http request",
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// apiKey rejects requests whose X-API-Key differs from key. An empty key
// disables the check.
func apiKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(apiKeyHeader)), []byte(key)) != 1 {
			writeError(c, apperror.NewUnauthorized("Unauthorized"))
			return
		}
		c.Next()
	}
}

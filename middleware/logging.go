package middleware

import (
	"time"

	"blogapi/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs every request and records its status and latency.
func RequestLogger(logger *zap.SugaredLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"clientIp", c.ClientIP(),
		}
		switch {
		case status >= 500:
			logger.Errorw("Request failed", fields...)
		case status >= 400:
			logger.Warnw("Request rejected", fields...)
		default:
			logger.Infow("Request handled", fields...)
		}

		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, status, latency)
	}
}

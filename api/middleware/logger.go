package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/misc-installer-go/pkg/logger"
	"go.uber.org/zap"
)

// Logger returns a gin middleware for request logging. Server errors are
// also recorded in the error category.
func Logger(logs *logger.LoggerAdapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}

		if statusCode >= 500 {
			logs.LogError("HTTP error response", fields...)
			return
		}
		logs.General().Info("HTTP request", fields...)
	}
}

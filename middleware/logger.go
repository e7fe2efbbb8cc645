package middleware

import (
	"time"

	"github.com/TIANLI0/CutoutStudio/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Logger 请求日志，5xx 记为 error，4xx 记为 warn；笔画移动这类高频请求只在 debug 级别输出
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = utils.GenerateID()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", status),
			zap.String("ip", c.ClientIP()),
			zap.Duration("cost", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			utils.Logger.Error("request", fields...)
		case status >= 400:
			utils.Logger.Warn("request", fields...)
		case c.FullPath() == "/api/v1/project/stroke/continue":
			utils.Logger.Debug("request", fields...)
		default:
			utils.Logger.Info("request", fields...)
		}
	}
}

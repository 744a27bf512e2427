package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/weiwangfds/picvault/internal/logger"
)

// LoggerMiddleware 日志中间件
type LoggerMiddleware struct {
	logger *logrus.Logger
}

// NewLoggerMiddleware 创建日志中间件实例
func NewLoggerMiddleware() *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger.GetLogger(),
	}
}

// RequestID 请求ID中间件
// 为每个请求生成唯一的追踪ID，写入上下文供响应封装使用
func (m *LoggerMiddleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger 请求日志中间件
func (m *LoggerMiddleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录响应信息
		latency := time.Since(start)
		status := c.Writer.Status()
		errorMessage := c.Errors.String()

		m.logger.WithFields(logrus.Fields{
			"timestamp":     time.Now().Format(time.RFC3339),
			"status":        status,
			"latency":       latency,
			"client_ip":     c.ClientIP(),
			"method":        c.Request.Method,
			"path":          path,
			"raw_query":     raw,
			"user_agent":    c.Request.UserAgent(),
			"error_message": errorMessage,
		}).Info("HTTP Request")
	}
}

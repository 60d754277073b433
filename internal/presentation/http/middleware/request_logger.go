package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/security"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
)

// RequestLogger tags each request with an id and logs it on the http channel once served.
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = security.GenerateULID()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logging.RequestIDKey, requestID))

		c.Next()

		status := c.Writer.Status()
		log := logger.WithContext(logging.ChannelHTTP, c.Request.Context())
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"clientIp", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.Error("Request failed", attrs...)
		case status >= 400:
			log.Warn("Request rejected", attrs...)
		default:
			log.Debug("Request served", attrs...)
		}
	}
}

// GetRequestID returns the id assigned by RequestLogger.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"character-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler returns a middleware that catches and formats application errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// The first error decides the response
		appErr := FromError(c.Errors[0].Err)

		log := logger.FromContext(c)
		fields := []any{
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
			"message", appErr.Message,
		}
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.Error("Request failed", fields...)
		} else {
			log.Warn("Request rejected", fields...)
		}

		c.AbortWithStatusJSON(appErr.StatusCode, appErr.Body())
	}
}

// RecoveryWithLogger returns a middleware that recovers from any panics
// and logs the error with the request ID if available
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())

				logger.FromContext(c).Error("Panic recovered",
					"error", fmt.Sprintf("%v", r),
					"stack", stack,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "The server encountered an unexpected error",
				})
			}
		}()

		c.Next()
	}
}

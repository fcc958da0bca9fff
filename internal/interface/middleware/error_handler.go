package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// ErrorHandler renders the last error a handler attached with c.Error, unless
// a response was already written. Server-side errors are logged with their
// cause; the client only sees the classified body.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		if logger != nil {
			entry := logger.WithError(err).WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"path":       c.Request.URL.Path,
				"type":       apperror.KindOf(err),
			})
			if apperror.KindOf(err).StatusCode() >= 500 {
				entry.Error("request failed")
			} else {
				entry.Debug("request rejected")
			}
		}
		if c.Writer.Written() {
			return
		}
		response.Fail(c, err)
	}
}

// RoutingError answers requests that matched no route or method.
func RoutingError() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Fail(c, apperror.New(apperror.RoutingError, "routing Error", "no route for "+c.Request.Method+" "+c.Request.URL.Path, map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}))
	}
}

// Recovery turns a panic into an opaque 500 body.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if logger != nil {
					logger.WithField("panic", r).WithField("request_id", c.GetString("request_id")).Error("panic recovered")
				}
				response.Fail(c, apperror.New(apperror.InvalidProgramState, "internal Error", "unexpected error", nil))
			}
		}()
		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  ipFromCtx(c),
			"status":     status,
			"latency":    time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		})
		switch {
		case status >= 500:
			entry.Error("http request")
		case status >= 400:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

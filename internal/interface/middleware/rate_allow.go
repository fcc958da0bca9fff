package middleware

import (
	"net"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// AllowPrivateIP reports whether the caller comes from a loopback or private
// address.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		ip := ipFromCtx(c)
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return false
		}
		return parsed.IsLoopback() || parsed.IsPrivate()
	}
}

// OnlyIf rejects requests for which allow returns false.
func OnlyIf(allow AllowFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allow(c) {
			response.Fail(c, apperror.New(apperror.Forbidden, "access Error", "forbidden", nil))
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// realIPHeaders are consulted in order; the first valid address wins.
var realIPHeaders = []string{"CF-Connecting-IP", "X-Real-Ip", "X-Forwarded-For"}

// RealIP stores the client address under "real_ip" for the access log, the
// rate limiter keys and the private-IP gate.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", resolveIP(c))
		c.Next()
	}
}

func resolveIP(c *gin.Context) string {
	for _, h := range realIPHeaders {
		v := c.GetHeader(h)
		if v == "" {
			continue
		}
		// X-Forwarded-For: client, proxy1, proxy2
		first, _, _ := strings.Cut(v, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return c.ClientIP()
}

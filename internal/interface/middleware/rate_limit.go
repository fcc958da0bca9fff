package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// ipFromCtx prefers the address resolved by RealIP.
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds the counter key for a request.
type KeyFunc func(c *gin.Context) string

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath counts each route separately per client.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + routeOf(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID counts per authenticated user, falling back to the client IP.
func KeyByUserID() KeyFunc {
	return func(c *gin.Context) string {
		if uid := c.GetString(CtxUserID); uid != "" {
			return "rl:user:" + uid
		}
		return "rl:user:anon:ip:" + ipFromCtx(c)
	}
}

// AllowFunc returns true for requests that skip the limiter.
type AllowFunc func(*gin.Context) bool

// windowScript increments the counter, starts the window on the first hit,
// and returns {count, remaining window in ms}.
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RateLimit is a fixed-window limiter backed by Redis. It fails open when
// Redis errors and is a no-op without a client. Rejections are RateLimited
// errors with Retry-After set.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || limit <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		res, err := windowScript.Run(c.Request.Context(), rdb, []string{keyFn(c)}, window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			c.Next()
			return
		}
		count, resetSec := int(res[0]), 0
		if res[1] > 0 {
			resetSec = int((time.Duration(res[1]) * time.Millisecond).Seconds())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(limit-count, 0)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > limit {
			c.Header("Retry-After", strconv.Itoa(max(resetSec, 1)))
			response.Fail(c, apperror.New(apperror.RateLimited, "rateLimit Error", "rate limit exceeded", map[string]any{"limit": limit}))
			return
		}
		c.Next()
	}
}

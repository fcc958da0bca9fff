package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// Gin context keys set by Auth.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

func unauthorized(c *gin.Context, msg string) {
	response.Fail(c, apperror.New(apperror.Unauthorized, "auth Error", msg, nil))
}

// Auth validates the access token cookie and, when Redis is configured, that
// the token's session is still the live one. It sets userID, userEmail and
// userRole in the Gin context on success.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			unauthorized(c, "missing access token")
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			unauthorized(c, "invalid access token")
			return
		}

		email, role := claims.Email, claims.Role
		if rdb != nil {
			data, err := rdb.HGetAll(c.Request.Context(), "user:session:"+claims.UserID).Result()
			if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
				unauthorized(c, "session not found")
				return
			}
			email, role = data["email"], data["role"]
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserEmail, email)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}

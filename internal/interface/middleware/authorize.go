package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/response"
)

// Authorize lets the request through only when Auth put one of roles in the
// context.
func Authorize(roles ...entity.Role) gin.HandlerFunc {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := c.Get(CtxUserRole)
		if !ok {
			unauthorized(c, "not authenticated")
			return
		}
		r, _ := role.(string)
		if _, ok := allowed[entity.Role(r)]; !ok {
			response.Fail(c, apperror.New(apperror.Forbidden, "auth Error", "insufficient role", map[string]any{"role": r}))
			return
		}
		c.Next()
	}
}

// SelfOnly requires the :param path value to be the caller's own email.
func SelfOnly(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.Param(param)
		if !entity.SameEmail(target, c.GetString(CtxUserEmail)) {
			response.Fail(c, apperror.New(apperror.Forbidden, "auth Error", "cannot act on another user", map[string]any{param: target}))
			return
		}
		c.Next()
	}
}

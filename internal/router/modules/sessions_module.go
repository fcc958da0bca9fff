package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/flowery-users/internal/interface/http"
	"github.com/oksasatya/flowery-users/internal/interface/middleware"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

// SessionsModule wires login/logout and the password reset flow under /sessions.
type SessionsModule struct {
	Handler *handlers.SessionHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewSessionsModule(h *handlers.SessionHandler, jwt *helpers.JWTManager, rdb *redis.Client) *SessionsModule {
	return &SessionsModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *SessionsModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.Redis, 10, time.Minute, middleware.KeyByIP(), nil)
	resetLimiter := middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	validateLimiter := middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	s := rg.Group("/sessions")
	s.POST("/login", loginLimiter, m.Handler.Login)
	s.POST("/resetpassword", resetLimiter, m.Handler.ResetPassword)
	s.GET("/resetpasswordvalidation/:token", validateLimiter, m.Handler.ResetPasswordValidation)
	s.POST("/logout", middleware.Auth(m.Redis, m.JWT), m.Handler.Logout)
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	handlers "github.com/oksasatya/flowery-users/internal/interface/http"
	"github.com/oksasatya/flowery-users/internal/interface/middleware"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

// UsersModule wires the user management routes under /users.
// Admin: GET /users, GET /users/:email, PUT /users/:email/premium, DELETE /users
// User or premium (own email only): POST /users/:email/documents
type UsersModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewUsersModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client) *UsersModule {
	return &UsersModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *UsersModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(
		middleware.Auth(m.Redis, m.JWT),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)

	admin := middleware.Authorize(entity.RoleAdmin)
	users.GET("", admin, m.Handler.List)
	users.GET("/:email", admin, m.Handler.Get)
	users.PUT("/:email/premium", admin, m.Handler.TogglePremium)
	users.DELETE("", admin, m.Handler.SweepInactive)

	users.POST("/:email/documents",
		middleware.Authorize(entity.RoleUser, entity.RolePremium),
		middleware.SelfOnly("email"),
		m.Handler.UploadDocuments,
	)
}

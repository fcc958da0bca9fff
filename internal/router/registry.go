package router

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/flowery-users/internal/interface/middleware"
)

// Module is a feature that registers its routes under the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

// NewRegistry groups modules under /api. Unmatched paths and methods answer
// with a routing error.
func NewRegistry(engine *gin.Engine) *Registry {
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(middleware.RoutingError())
	engine.NoMethod(middleware.RoutingError())
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

package router

import (
	appuser "github.com/oksasatya/flowery-users/internal/application"
	"github.com/oksasatya/flowery-users/internal/container"
	repouser "github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/internal/infrastructure/search"
	handlers "github.com/oksasatya/flowery-users/internal/interface/http"
	"github.com/oksasatya/flowery-users/internal/router/modules"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

type UserModuleDeps struct {
	Repo     repouser.UserRepository
	Service  *appuser.Service
	Sessions *appuser.SessionService
	Users    *handlers.UserHandler
	Session  *handlers.SessionHandler
}

// BuildUserDeps assembles the user service stack from the container.
func BuildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	repo := repouser.NewUserRepository(container.GetUserStore())

	var index appuser.UserIndexer
	if es := container.GetES(); es != nil && cfg.ESUsersIndex != "" {
		index = search.NewUserIndex(es, cfg.ESUsersIndex)
	}

	files := container.GetFileStore()
	service := appuser.NewService(
		repo,
		container.GetMailSender(),
		container.GetResetTokens(),
		index,
		logger,
		cfg,
		files.BaseURL(),
	)
	sessions := appuser.NewSessionService(repo, service, container.GetJWT(), container.GetRedis(), logger)

	return UserModuleDeps{
		Repo:     repo,
		Service:  service,
		Sessions: sessions,
		Users:    handlers.NewUserHandler(service, files, logger, cfg.AppURL),
		Session:  handlers.NewSessionHandler(sessions, service, logger, helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure), cfg.AppURL),
	}
}

// InitModules registers every feature module with the registry. It should be
// called once during startup, after the container is populated.
func InitModules(r *Registry, deps UserModuleDeps) {
	rdb := container.GetRedis()
	jwt := container.GetJWT()

	r.Add(modules.NewUsersModule(deps.Users, jwt, rdb))
	r.Add(modules.NewSessionsModule(deps.Session, jwt, rdb))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}

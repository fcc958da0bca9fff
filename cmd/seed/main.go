package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/flowery-users/config"
	"github.com/oksasatya/flowery-users/internal/domain/entity"
	pginfra "github.com/oksasatya/flowery-users/internal/infrastructure/postgres"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

// seed creates the administrator account and a demo user.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}
	store := pginfra.NewUserStore(pool)

	seeds := []struct {
		user     entity.User
		password string
	}{
		{entity.User{FirstName: "Admin", Email: cfg.AdminEmail, Role: entity.RoleAdmin}, getenv("ADMIN_PASSWORD", "adminpassword")},
		{entity.User{FirstName: "Demo", LastName: "User", Email: "demo@flowery.local", Role: entity.RoleUser}, "password123"},
	}
	for _, s := range seeds {
		hash, err := helpers.HashPassword(s.password)
		if err != nil {
			logger.WithError(err).Fatal("failed to hash password")
		}
		u := s.user
		u.Password = hash
		created, err := store.Create(ctx, &u)
		switch {
		case apperror.Is(err, apperror.BusinessRuleViolation):
			logger.WithField("email", u.Email).Info("user already seeded")
		case err != nil:
			logger.WithError(err).WithField("email", u.Email).Fatal("failed to seed user")
		default:
			logger.WithField("id", created.ID).WithField("email", created.Email).WithField("role", created.Role).Info("seeded user")
		}
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/config"
	"github.com/oksasatya/flowery-users/internal/container"
	"github.com/oksasatya/flowery-users/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/flowery-users/internal/infrastructure/postgres"
	"github.com/oksasatya/flowery-users/internal/infrastructure/search"
	"github.com/oksasatya/flowery-users/internal/infrastructure/storage"
	"github.com/oksasatya/flowery-users/internal/interface/middleware"
	"github.com/oksasatya/flowery-users/internal/jobs"
	"github.com/oksasatya/flowery-users/internal/router"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/mailer"
	"github.com/oksasatya/flowery-users/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// User store
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("DB_DRIVER=memory; users are kept in process memory")
		container.SetUserStore(memory.NewUserStore())
	default:
		pool, err := pginfra.NewPool(ctx, cfg)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to postgres")
		}
		defer pool.Close()
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
		container.SetPGPool(pool)
		container.SetUserStore(pginfra.NewUserStore(pool))
	}

	// Redis backs sessions, rate limits, reset tokens and the sweep lock
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		c, err := helpers.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("redis unreachable; sessions and rate limits disabled")
		} else {
			rdb = c
			defer func() { _ = rdb.Close() }()
		}
	}

	// Document storage
	files, err := storage.New(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to init document storage")
	}

	// Email: queue to the worker, or just log when sending is disabled
	var sender mailer.Sender = mailer.LogSender{Logger: logger}
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer pub.Close()
		container.SetRabbitPub(pub)
		sender = mailer.NewQueueSender(pub)
	}

	// Elasticsearch (optional)
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch disabled")
		} else if err := helpers.PingES(ctx, es); err != nil {
			logger.WithError(err).Warn("elasticsearch unreachable; user index disabled")
		} else {
			if err := search.NewUserIndex(es, cfg.ESUsersIndex).EnsureIndex(ctx); err != nil {
				logger.WithError(err).Warn("ensure users index failed")
			}
			container.SetES(es)
		}
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetRedis(rdb)
	container.SetFileStore(files)
	container.SetMailSender(sender)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	container.SetResetTokens(helpers.NewResetTokenManager(cfg.AuthSecret, rdb))

	// Gin engine and global middleware
	r := gin.New()
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.RealIP(),
		middleware.Recovery(logger),
		middleware.AccessLog(logger),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins(),
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.ErrorHandler(logger),
	)
	if fs, ok := files.(*storage.FileStore); ok {
		r.Static(strings.TrimPrefix(cfg.DocumentsBaseURL(), cfg.AppURL), fs.BasePath())
	}

	deps := router.BuildUserDeps()
	reg := router.NewRegistry(r)
	router.InitModules(reg, deps)
	reg.RegisterAll()

	sched := jobs.NewScheduler(deps.Service, rdb, logger)
	if err := sched.Start(cfg.SweepCron); err != nil {
		logger.WithError(err).WithField("spec", cfg.SweepCron).Fatal("invalid SWEEP_CRON")
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(ctxShutdown)
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Fatal("server forced to shutdown")
	}
	logger.Info("server exited properly")
}

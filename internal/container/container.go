package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/config"
	"github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/internal/infrastructure/storage"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	userStore   repository.UserStore
	fileStore   storage.Store

	jwtManager  *helpers.JWTManager
	resetTokens *helpers.ResetTokenManager

	mailSender mailer.Sender
	rabbitPub  *helpers.RabbitPublisher
	esClient   *elasticsearch.Client
)

func SetConfig(c *config.Config)                  { cfg = c }
func GetConfig() *config.Config                   { return cfg }
func SetLogger(l *logrus.Logger)                  { logger = l }
func GetLogger() *logrus.Logger                   { return logger }
func SetPGPool(p *pgxpool.Pool)                   { pgPool = p }
func GetPGPool() *pgxpool.Pool                    { return pgPool }
func SetRedis(r *redis.Client)                    { redisClient = r }
func GetRedis() *redis.Client                     { return redisClient }
func SetUserStore(s repository.UserStore)         { userStore = s }
func GetUserStore() repository.UserStore          { return userStore }
func SetFileStore(s storage.Store)                { fileStore = s }
func GetFileStore() storage.Store                 { return fileStore }
func SetJWT(m *helpers.JWTManager)                { jwtManager = m }
func GetJWT() *helpers.JWTManager                 { return jwtManager }
func SetResetTokens(m *helpers.ResetTokenManager) { resetTokens = m }
func GetResetTokens() *helpers.ResetTokenManager  { return resetTokens }

func SetMailSender(s mailer.Sender)           { mailSender = s }
func GetMailSender() mailer.Sender            { return mailSender }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

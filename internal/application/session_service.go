package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/internal/domain/entity"
	repo "github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/helpers"
)

const sessionTTL = 24 * time.Hour

// SessionKey is the Redis hash holding the live session of a user.
func SessionKey(userID string) string {
	return "user:session:" + userID
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// SessionService handles login and logout. Every successful login or logout
// records the user's connection.
type SessionService struct {
	Repo   repo.UserRepository
	Users  *Service
	JWT    *helpers.JWTManager
	Redis  *redis.Client // optional
	Logger *logrus.Logger
}

func NewSessionService(r repo.UserRepository, users *Service, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger) *SessionService {
	return &SessionService{Repo: r, Users: users, JWT: jwt, Redis: rdb, Logger: logger}
}

func invalidCredentials() error {
	return apperror.New(apperror.Unauthorized, "login Error", "invalid credentials", nil)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Wrap(err, "login Error", "failed to look up user")
	}
	if u == nil || !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, invalidCredentials()
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *SessionService) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sub := helpers.Subject{
		UserID:    u.ID,
		SessionID: uuid.NewString(),
		Email:     u.Email,
		Role:      string(u.Role),
	}
	access, aexp, err := s.JWT.GenerateAccessToken(sub)
	if err != nil {
		return TokenPair{}, apperror.Wrap(err, "login Error", "failed to issue access token")
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(sub)
	if err != nil {
		return TokenPair{}, apperror.Wrap(err, "login Error", "failed to issue refresh token")
	}

	if s.Redis != nil {
		key := SessionKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"role":       string(u.Role),
			"sid":        sub.SessionID,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, sessionTTL)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*UserDTO, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if updated, err := s.Users.RecordConnection(ctx, u.Email); err == nil {
		u = updated
	} else if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("record connection on login failed")
	}
	dto := ToUserDTO(u)
	return &dto, pair, nil
}

// Logout drops the session hash and records the connection.
func (s *SessionService) Logout(ctx context.Context, userID, email string) error {
	if s.Redis != nil && userID != "" {
		if err := s.Redis.Del(ctx, SessionKey(userID)).Err(); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("session delete failed")
		}
	}
	if _, err := s.Users.RecordConnection(ctx, email); err != nil {
		return err
	}
	return nil
}

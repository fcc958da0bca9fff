package helpers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

var (
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
	ErrResetTokenUsed    = errors.New("reset token already used")
)

type resetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ResetTokenManager mints single-use password reset tokens. The token is a
// signed JWT embedding the email; its jti is registered in Redis (or in
// process memory when Redis is not configured) and removed on first use.
type ResetTokenManager struct {
	Secret []byte
	TTL    time.Duration
	Redis  *redis.Client

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewResetTokenManager(secret string, rdb *redis.Client) *ResetTokenManager {
	return &ResetTokenManager{
		Secret:  []byte(secret),
		TTL:     ResetTokenTTL,
		Redis:   rdb,
		pending: map[string]time.Time{},
	}
}

func keyResetJTI(jti string) string { return "pwd:reset:jti:" + jti }

// Issue returns a signed token for email and its expiry.
func (m *ResetTokenManager) Issue(ctx context.Context, email string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	jti := uuid.NewString()
	claims := &resetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}

	if m.Redis != nil {
		if err := m.Redis.Set(ctx, keyResetJTI(jti), strings.ToLower(email), m.TTL).Err(); err != nil {
			return "", time.Time{}, err
		}
		return tok, exp, nil
	}

	m.mu.Lock()
	m.prune(now)
	m.pending[jti] = exp
	m.mu.Unlock()
	return tok, exp, nil
}

// Consume validates token and marks it used, returning the embedded email.
func (m *ResetTokenManager) Consume(ctx context.Context, token string) (string, error) {
	claims := &resetClaims{}
	if err := parseToken(token, m.Secret, claims); err != nil || claims.ID == "" {
		return "", ErrResetTokenInvalid
	}

	if m.Redis != nil {
		owner, err := m.Redis.GetDel(ctx, keyResetJTI(claims.ID)).Result()
		if errors.Is(err, redis.Nil) {
			return "", ErrResetTokenUsed
		}
		if err != nil {
			return "", err
		}
		if !strings.EqualFold(owner, claims.Email) {
			return "", ErrResetTokenInvalid
		}
		return claims.Email, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(time.Now())
	if _, ok := m.pending[claims.ID]; !ok {
		return "", ErrResetTokenUsed
	}
	delete(m.pending, claims.ID)
	return claims.Email, nil
}

func (m *ResetTokenManager) prune(now time.Time) {
	if m.pending == nil {
		m.pending = map[string]time.Time{}
	}
	for jti, exp := range m.pending {
		if now.After(exp) {
			delete(m.pending, jti)
		}
	}
}

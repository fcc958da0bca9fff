package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager handles generation and validation of session JWT tokens
type JWTManager struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewJWTManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

// Claims identify the session owner. Role and Email are copied from the user
// at login so the authorization middleware does not hit the database.
type Claims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Subject is the identity embedded in session tokens
type Subject struct {
	UserID    string
	SessionID string
	Email     string
	Role      string
}

func (m *JWTManager) GenerateAccessToken(sub Subject) (string, time.Time, error) {
	return m.sign(sub, m.AccessSecret, m.AccessTTL)
}

func (m *JWTManager) GenerateRefreshToken(sub Subject) (string, time.Time, error) {
	return m.sign(sub, m.RefreshSecret, m.RefreshTTL)
}

func (m *JWTManager) sign(sub Subject, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		UserID:    sub.UserID,
		SessionID: sub.SessionID,
		Email:     sub.Email,
		Role:      sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(secret)
	return s, exp, err
}

func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parseToken(tokenStr, m.AccessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *JWTManager) ParseRefreshToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parseToken(tokenStr, m.RefreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parseToken(tokenStr string, secret []byte, claims jwt.Claims) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return errors.New("invalid token")
	}
	return nil
}

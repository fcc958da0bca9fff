package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/flowery-users/internal/application"
	"github.com/oksasatya/flowery-users/internal/interface/middleware"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/response"
	"github.com/oksasatya/flowery-users/pkg/validation"
)

type SessionHandler struct {
	Sessions *userapp.SessionService
	Users    *userapp.Service
	Logger   *logrus.Logger
	Cookies  *helpers.Manager
	// FrontendURL is where password reset links point.
	FrontendURL string
}

func NewSessionHandler(sessions *userapp.SessionService, users *userapp.Service, logger *logrus.Logger, cookies *helpers.Manager, frontendURL string) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Users: users, Logger: logger, Cookies: cookies, FrontendURL: frontendURL}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError("login Error", err))
		return
	}
	user, pair, err := h.Sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, "login successful", gin.H{"user": user})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	err := h.Sessions.Logout(c.Request.Context(), c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxUserEmail))
	h.Cookies.Clear(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "logged out", nil)
}

func (h *SessionHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validation.BindError("resetPassword Error", err))
		return
	}
	if _, err := h.Users.RequestPasswordReset(c.Request.Context(), req.Email, h.FrontendURL); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "password reset email sent", nil)
}

func (h *SessionHandler) ResetPasswordValidation(c *gin.Context) {
	email, err := h.Users.ConsumeResetToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "reset token is valid", gin.H{"email": email})
}

package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"greendrake/realty/internal/config"
	"greendrake/realty/internal/models"
	"greendrake/realty/internal/services"
	"greendrake/realty/internal/tasks"
)

// refreshCookiePath scopes the refresh cookie to the auth routes.
const refreshCookiePath = "/api/v1/auth"

// AuthHandler serves registration, sign-in and password recovery.
type AuthHandler struct {
	cfg         *config.Config
	authService services.IAuthService
	userService services.IUserService
	taskClient  tasks.Enqueuer
}

func NewAuthHandler(cfg *config.Config, authService services.IAuthService, userService services.IUserService, taskClient tasks.Enqueuer) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		authService: authService,
		userService: userService,
		taskClient:  taskClient,
	}
}

type registerRequest struct {
	Name        string      `json:"name" binding:"required"`
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required"`
	Role        models.Role `json:"role" binding:"omitempty,oneof=agent client"`
	PhoneNumber string      `json:"phoneNumber"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.RefreshCookieName, token, int(h.cfg.JwtRefreshTTL.Seconds()), refreshCookiePath, "", h.cfg.CookieSecure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.RefreshCookieName, "", -1, refreshCookiePath, "", h.cfg.CookieSecure, true)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	res, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:        strings.TrimSpace(req.Name),
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
	})
	if err != nil {
		respondError(c, err, "User")
		return
	}

	notify(c.Request.Context(), h.taskClient, tasks.QueueLow, res.User.Email, services.TemplateWelcome, map[string]interface{}{
		"app_name":   h.cfg.AppName,
		"name":       res.User.Name,
		"role":       string(res.User.Role),
		"client_url": h.cfg.ClientURL,
	})

	h.setRefreshCookie(c, res.RefreshToken)
	c.JSON(http.StatusCreated, authResponse{User: res.User, AccessToken: res.AccessToken})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "User")
		return
	}

	h.setRefreshCookie(c, res.RefreshToken)
	c.JSON(http.StatusOK, authResponse{User: res.User, AccessToken: res.AccessToken})
}

// Refresh handles POST /auth/refresh. The refresh token is rotated on every call.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(h.cfg.RefreshCookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token missing"})
		return
	}

	res, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			h.clearRefreshCookie(c)
		}
		respondError(c, err, "User")
		return
	}

	h.setRefreshCookie(c, res.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"accessToken": res.AccessToken})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ForgotPassword handles POST /auth/forgot-password. The answer is the same whether or not the account exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	reset, err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		log.Printf("Password reset request for %s failed: %v", req.Email, err)
	}
	if reset != nil {
		notify(c.Request.Context(), h.taskClient, tasks.QueueCritical, reset.User.Email, services.TemplatePasswordReset, map[string]interface{}{
			"app_name":        h.cfg.AppName,
			"name":            reset.User.Name,
			"expires_minutes": int(h.cfg.ResetPasswordTTL.Minutes()),
			"reset_url":       strings.TrimRight(h.cfg.ClientURL, "/") + "/reset-password/" + reset.Token,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "If an account exists for that email, a reset link has been sent"})
}

// ResetPassword handles POST /auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	_, err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password reset token is invalid or has expired"})
			return
		}
		respondError(c, err, "User")
		return
	}
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, user)
}

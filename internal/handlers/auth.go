package handlers

import (
	"errors"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/middleware"
	"github.com/authgate/authgate/internal/services"
	"github.com/authgate/authgate/internal/services/identity"
	"github.com/authgate/authgate/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
	ldapEnabled bool
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, cfg, audit),
		ldapEnabled: cfg.LDAP.Enabled,
	}
}

func (h *AuthHandler) Service() *services.AuthService {
	return h.authService
}

// Login handles password and directory login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	response.Success(c, result)
}

// SocialLogin handles third-party login
// POST /api/auth/social-login
func (h *AuthHandler) SocialLogin(c *gin.Context) {
	var req services.SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	provider := identity.Provider(req.Provider)
	if !provider.Valid() {
		response.BadRequest(c, "unknown social provider")
		return
	}

	credential := req.Code
	if credential == "" {
		credential = req.Token
	}
	if credential == "" {
		response.BadRequest(c, "code or token is required")
		return
	}

	result, err := h.authService.SocialLogin(c.Request.Context(), provider, credential, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	response.Success(c, result)
}

// Register creates a password account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	response.Created(c, result)
}

type refreshRequest struct {
	UserID       uint   `json:"user_id" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a new pair
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(req.UserID, req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	response.Success(c, result)
}

// Logout revokes the current pair
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if err := h.authService.Logout(principal, c.ClientIP(), c.Request.UserAgent()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// LogoutAll revokes every pair except the current one
// POST /api/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	if err := h.authService.LogoutAll(principal, c.ClientIP(), c.Request.UserAgent()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out everywhere"})
}

// GetCurrentUser returns the authenticated user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	response.Success(c, principal.User)
}

// ChangePassword updates the current user's password
// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(middleware.GetUserID(c), &req); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.BadRequest(c, "incorrect old password")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}

// GetAuthConfig returns which auth methods are available
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"ldap_enabled": h.ldapEnabled,
		"providers":    []string{"google", "github", "facebook"},
	})
}

// CreateAdminIfNotExists seeds the default admin user.
func (h *AuthHandler) CreateAdminIfNotExists() error {
	return h.authService.CreateAdminIfNotExists()
}

// writeAuthError maps service errors onto the response envelope without
// leaking which check failed.
func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	var conflict *services.AccountConflictError
	switch {
	case errors.As(err, &conflict):
		response.Conflict(c, conflict.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Unauthorized(c, "invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		response.Unauthorized(c, "token invalid or expired")
	case errors.Is(err, services.ErrUserDisabled):
		response.Unauthorized(c, "user is disabled")
	case errors.Is(err, services.ErrEmailTaken):
		response.Conflict(c, err.Error())
	default:
		response.Error(c, err)
	}
}

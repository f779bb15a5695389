package handlers

import (
	"errors"

	"github.com/authgate/authgate/internal/middleware"
	"github.com/authgate/authgate/internal/services"
	"github.com/authgate/authgate/pkg/response"
	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the caller's active token pairs.
type SessionHandler struct {
	authService *services.AuthService
}

func NewSessionHandler(authService *services.AuthService) *SessionHandler {
	return &SessionHandler{authService: authService}
}

// ListSessions returns the caller's non-revoked, non-expired sessions
// GET /api/auth/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	sessions, err := h.authService.ListSessions(principal.User.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, gin.H{
			"id":         s.ID,
			"current":    s.ID == principal.JTI,
			"expires_at": s.ExpiresAt,
			"created_at": s.CreatedAt,
		})
	}
	response.Success(c, items)
}

// RevokeSession revokes one of the caller's own sessions
// DELETE /api/auth/sessions/:id
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	principal := middleware.GetPrincipal(c)
	jti := c.Param("id")

	if err := h.authService.RevokeSession(principal, jti); err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			response.NotFound(c, "session not found")
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "session revoked"})
}

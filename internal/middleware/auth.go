package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/authgate/authgate/internal/services"
	"github.com/gin-gonic/gin"
)

const ContextPrincipal = "principal"

// AuthRequired guards every protected endpoint. It checks the token
// structurally (signature, expiry), then against the revocation ledger, and
// resolves the owning user fresh. The resulting principal (user + jti) is
// stored on the request context; the user record itself is never mutated.
func AuthRequired(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		principal, err := authService.Authenticate(parts[1])
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			c.Abort()
			return
		}

		c.Set(ContextPrincipal, principal)
		c.Next()
	}
}

// AdminRequired checks the authenticated principal for the admin role. Must
// run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil || principal.User.Role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal, or nil outside a guarded
// route.
func GetPrincipal(c *gin.Context) *services.Principal {
	if v, exists := c.Get(ContextPrincipal); exists {
		if p, ok := v.(*services.Principal); ok {
			return p
		}
	}
	return nil
}

// GetUserID returns the authenticated user's id, or 0.
func GetUserID(c *gin.Context) uint {
	if p := GetPrincipal(c); p != nil {
		return p.User.ID
	}
	return 0
}

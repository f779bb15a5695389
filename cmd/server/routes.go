package main

import (
	"github.com/gin-gonic/gin"

	"github.com/authgate/authgate/internal/handlers"
	"github.com/authgate/authgate/internal/middleware"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	// Rate limiter for credential-bearing routes
	credentialLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", credentialLimiter.Middleware())
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/social-login", svc.authHandler.SocialLogin)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}
		api.GET("/auth/config", svc.authHandler.GetAuthConfig)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.authHandler.Service()))
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/logout-all", svc.authHandler.LogoutAll)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Sessions
			sessionHandler := handlers.NewSessionHandler(svc.authHandler.Service())
			protected.GET("/auth/sessions", sessionHandler.ListSessions)
			protected.DELETE("/auth/sessions/:id", sessionHandler.RevokeSession)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(svc.authHandler.Service()), middleware.AdminRequired())
		{
			// Users
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// Audit trail
			auditLogHandler := handlers.NewAuditLogHandler(models.GetDB())
			admin.GET("/audit-logs", auditLogHandler.List)
			admin.GET("/audit-logs/events", auditLogHandler.GetEvents)

			// Runtime token settings
			systemConfigHandler := handlers.NewSystemConfigHandler(models.GetDB())
			admin.GET("/system-configs/token", systemConfigHandler.GetTokenConfig)
			admin.PUT("/system-configs/token", systemConfigHandler.UpdateTokenConfig)
		}
	}
}

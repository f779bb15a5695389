package main

import (
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/handlers"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/services"
	"github.com/authgate/authgate/internal/utils"
	"github.com/authgate/authgate/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	auditSink     services.AuditSink
	auditWorker   *services.AuditWorker
	purgeService  *services.PurgeService
	authHandler   *handlers.AuthHandler
	healthHandler *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	// Audit sink (uses Redis queue if enabled, otherwise direct writes)
	auditSink := services.InitAuditSink(cfg, models.GetDB())
	auditService := services.NewAuditService(auditSink)

	// Start async audit worker if Redis is enabled
	var auditWorker *services.AuditWorker
	if cfg.Redis.Enabled {
		auditWorker = services.NewAuditWorker(&cfg.Redis, models.GetDB())
		if err := auditWorker.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start audit worker")
			auditWorker = nil
		}
	}

	// Nightly purge of expired token records and old audit entries
	purgeService := services.NewPurgeService(models.GetDB())
	purgeService.StartScheduler()

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg, auditService)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		auditSink:     auditSink,
		auditWorker:   auditWorker,
		purgeService:  purgeService,
		authHandler:   authHandler,
		healthHandler: handlers.NewHealthHandler(auditSink),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.purgeService.StopScheduler()
	if s.auditWorker != nil {
		s.auditWorker.Stop()
	}
	if s.auditSink != nil {
		s.auditSink.Close()
	}
	logger.Info().Msg("All background services stopped")
}

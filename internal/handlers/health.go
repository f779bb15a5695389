package handlers

import (
	"time"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/services"
	"github.com/gin-gonic/gin"
)

// HealthHandler provides liveness and subsystem status endpoints.
type HealthHandler struct {
	auditSink services.AuditSink
}

func NewHealthHandler(sink services.AuditSink) *HealthHandler {
	return &HealthHandler{auditSink: sink}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	auditMode := "database"
	if _, ok := h.auditSink.(*services.QueueSink); ok {
		auditMode = "queue (Redis)"
	}

	var activeSessions int64
	models.GetDB().Model(&models.AccessToken{}).
		Where("revoked = ? AND expires_at > ?", false, time.Now()).
		Count(&activeSessions)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "authgate",
		"components": gin.H{
			"database":        dbStatus,
			"audit_mode":      auditMode,
			"active_sessions": activeSessions,
		},
	})
}

package handlers

import (
	"net/http"

	"github.com/authgate/authgate/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuditLogHandler struct {
	auditQueryService *services.AuditQueryService
}

func NewAuditLogHandler(db *gorm.DB) *AuditLogHandler {
	return &AuditLogHandler{
		auditQueryService: services.NewAuditQueryService(db),
	}
}

func (h *AuditLogHandler) List(c *gin.Context) {
	var req services.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.auditQueryService.List(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuditLogHandler) GetEvents(c *gin.Context) {
	events, err := h.auditQueryService.GetEvents()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

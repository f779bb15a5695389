package handlers

import (
	"net/http"
	"strconv"

	"github.com/authgate/authgate/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(db *gorm.DB) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: services.NewSystemConfigService(db),
	}
}

// TokenConfig mirrors the runtime-tunable lifetime settings. Zero values
// fall back to the yaml config defaults at read time.
type TokenConfig struct {
	AccessTokenExpireHours int `json:"access_token_expire_hours"`
	RefreshTokenGraceDays  int `json:"refresh_token_grace_days"`
	TokenRetentionDays     int `json:"token_retention_days"`
	AuditRetentionDays     int `json:"audit_retention_days"`
}

func (h *SystemConfigHandler) GetTokenConfig(c *gin.Context) {
	c.JSON(http.StatusOK, TokenConfig{
		AccessTokenExpireHours: h.configService.GetInt("auth_access_token_expire_hours", 720),
		RefreshTokenGraceDays:  h.configService.GetInt("auth_refresh_token_grace_days", 30),
		TokenRetentionDays:     h.configService.GetInt("token_retention_days", 90),
		AuditRetentionDays:     h.configService.GetInt("audit_retention_days", 180),
	})
}

type UpdateTokenConfigRequest struct {
	AccessTokenExpireHours *int `json:"access_token_expire_hours" binding:"omitempty,min=1"`
	RefreshTokenGraceDays  *int `json:"refresh_token_grace_days" binding:"omitempty,min=0"`
	TokenRetentionDays     *int `json:"token_retention_days" binding:"omitempty,min=1"`
	AuditRetentionDays     *int `json:"audit_retention_days" binding:"omitempty,min=1"`
}

func (h *SystemConfigHandler) UpdateTokenConfig(c *gin.Context) {
	var req UpdateTokenConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]*int{
		"auth_access_token_expire_hours": req.AccessTokenExpireHours,
		"auth_refresh_token_grace_days":  req.RefreshTokenGraceDays,
		"token_retention_days":           req.TokenRetentionDays,
		"audit_retention_days":           req.AuditRetentionDays,
	}
	for key, value := range updates {
		if value == nil {
			continue
		}
		if err := h.configService.Set(key, strconv.Itoa(*value)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	h.GetTokenConfig(c)
}

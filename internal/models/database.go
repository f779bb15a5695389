package models

import (
	"fmt"

	"github.com/authgate/authgate/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&AccessToken{},
		&RefreshToken{},
		&SystemConfig{},
		&AuditLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default system configs if not present.
func SeedDefaultData() error {
	defaultConfigs := []SystemConfig{
		{Key: "auth_access_token_expire_hours", Value: "720", Type: "int", Group: "auth", Label: "Access Token Lifetime (hours)"},
		{Key: "auth_refresh_token_grace_days", Value: "30", Type: "int", Group: "auth", Label: "Refresh Token Grace Window (days)"},
		{Key: "token_retention_days", Value: "90", Type: "int", Group: "system", Label: "Expired Token Retention Days"},
		{Key: "audit_retention_days", Value: "180", Type: "int", Group: "system", Label: "Audit Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		DB.Model(&SystemConfig{}).Where(map[string]interface{}{"key": cfg.Key}).Count(&count)
		if count == 0 {
			if err := DB.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

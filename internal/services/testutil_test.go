package services

import (
	"testing"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	utils.SetJWTSecret("test-secret-key-for-testing")
}

// openTestDB opens an in-memory database restricted to a single connection so
// concurrent transactions serialize the same way they would on a server
// database with row locks.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.SystemConfig{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "test-secret-key-for-testing"
	cfg.JWT.AccessExpireHour = 1
	cfg.JWT.RefreshGraceDays = 7
	return cfg
}

func newTestAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	audit := NewAuditService(NewDBSink(db))
	return NewAuthService(db, testConfig(), audit), db
}

func createTestUser(t *testing.T, db *gorm.DB, email, password, authType string, active bool) *models.User {
	t.Helper()

	var hashed string
	if password != "" {
		var err error
		hashed, err = utils.HashPassword(password)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
	}

	user := &models.User{
		Email:    email,
		Password: hashed,
		Role:     "user",
		AuthType: authType,
		IsActive: active,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if !active {
		// IsActive carries gorm's `default:true`, so Create drops the
		// zero-value false and the column defaults to true; persist the
		// disabled state explicitly.
		if err := db.Model(user).Update("is_active", false).Error; err != nil {
			t.Fatalf("failed to deactivate user: %v", err)
		}
	}
	return user
}

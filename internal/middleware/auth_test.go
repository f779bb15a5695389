package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/services"
	"github.com/authgate/authgate/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-middleware-testing")
}

func newTestService(t *testing.T) (*services.AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AccessToken{},
		&models.RefreshToken{},
		&models.SystemConfig{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "test-secret-for-middleware-testing"
	return services.NewAuthService(db, cfg, services.NewAuditService(nil)), db
}

func loginTestUser(t *testing.T, svc *services.AuthService, db *gorm.DB, role string) *services.LoginResult {
	t.Helper()

	hashed, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Email:    role + "@example.com",
		Password: hashed,
		Role:     role,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	result, err := svc.Login(&services.LoginRequest{Email: user.Email, Password: "password123"}, "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return result
}

func protectedRouter(svc *services.AuthService) *gin.Engine {
	router := gin.New()
	router.Use(AuthRequired(svc))
	router.GET("/protected", func(c *gin.Context) {
		p := GetPrincipal(c)
		c.JSON(200, gin.H{"user_id": p.User.ID, "jti": p.JTI})
	})
	return router
}

func TestAuthRequired_NoHeader(t *testing.T) {
	svc, _ := newTestService(t)
	router := protectedRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_InvalidFormat(t *testing.T) {
	svc, _ := newTestService(t)
	router := protectedRouter(svc)

	testCases := []string{
		"InvalidToken",
		"Basic token123",
		"Bearer",
	}

	for _, authHeader := range testCases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", authHeader)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected status %d, got %d", authHeader, http.StatusUnauthorized, w.Code)
		}
	}
}

func TestAuthRequired_InvalidToken(t *testing.T) {
	svc, _ := newTestService(t)
	router := protectedRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthRequired_ValidToken(t *testing.T) {
	svc, db := newTestService(t)
	result := loginTestUser(t, svc, db, "user")
	router := protectedRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+result.Pair.AccessToken)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var body struct {
		UserID uint   `json:"user_id"`
		JTI    string `json:"jti"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.UserID != result.User.ID {
		t.Errorf("user_id = %d, expected %d", body.UserID, result.User.ID)
	}
	if body.JTI != result.Pair.JTI {
		t.Errorf("jti = %q, expected %q", body.JTI, result.Pair.JTI)
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	svc, db := newTestService(t)
	result := loginTestUser(t, svc, db, "user")
	router := protectedRouter(svc)

	// revoke directly in the ledger
	if err := db.Model(&models.AccessToken{}).
		Where("id = ?", result.Pair.JTI).
		Update("revoked", true).Error; err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+result.Pair.AccessToken)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAdminRequired_UserRole(t *testing.T) {
	svc, db := newTestService(t)
	result := loginTestUser(t, svc, db, "user")

	router := gin.New()
	router.Use(AuthRequired(svc), AdminRequired())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+result.Pair.AccessToken)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestAdminRequired_AdminRole(t *testing.T) {
	svc, db := newTestService(t)
	result := loginTestUser(t, svc, db, "admin")

	router := gin.New()
	router.Use(AuthRequired(svc), AdminRequired())
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+result.Pair.AccessToken)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestGetPrincipal_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetPrincipal(c) != nil {
		t.Error("GetPrincipal should return nil outside a guarded route")
	}
	if GetUserID(c) != 0 {
		t.Error("GetUserID should return 0 outside a guarded route")
	}
}

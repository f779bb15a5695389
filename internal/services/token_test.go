package services

import (
	"strconv"
	"testing"
	"time"

	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/utils"
)

func TestIssue_CreatesLedgerRecords(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, &testConfig().JWT)
	user := createTestUser(t, db, "issue@example.com", "password123", models.AuthTypeLocal, true)

	pair, err := svc.Issue(user, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("Issue() returned empty token material")
	}
	if len(pair.JTI) != 64 {
		t.Errorf("jti length = %d, expected 64", len(pair.JTI))
	}
	if len(pair.RefreshToken) != 128 {
		t.Errorf("refresh token length = %d, expected 128", len(pair.RefreshToken))
	}

	claims, err := utils.ParseToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("issued access token does not parse: %v", err)
	}
	if claims.ID != pair.JTI {
		t.Errorf("claims jti = %q, expected %q", claims.ID, pair.JTI)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user id = %d, expected %d", claims.UserID, user.ID)
	}
	if claims.Subject != user.Email {
		t.Errorf("claims subject = %q, expected %q", claims.Subject, user.Email)
	}

	var access models.AccessToken
	if err := db.First(&access, "id = ?", pair.JTI).Error; err != nil {
		t.Fatalf("access record not persisted: %v", err)
	}
	if access.Revoked {
		t.Error("fresh access record should not be revoked")
	}
	if access.UserID != user.ID {
		t.Errorf("access record user = %d, expected %d", access.UserID, user.ID)
	}

	var refresh models.RefreshToken
	if err := db.First(&refresh, "access_token_id = ?", pair.JTI).Error; err != nil {
		t.Fatalf("refresh record not persisted: %v", err)
	}
	if refresh.TokenHash == pair.RefreshToken {
		t.Error("refresh token must be stored hashed, not in plaintext")
	}
	if refresh.TokenHash != utils.HashToken(pair.RefreshToken) {
		t.Error("stored hash does not match the issued refresh token")
	}
	if refresh.CreatedByIP != "10.0.0.1" {
		t.Errorf("CreatedByIP = %q, expected %q", refresh.CreatedByIP, "10.0.0.1")
	}
}

func TestIssue_RefreshOutlivesAccessByGraceWindow(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig()
	svc := NewTokenService(db, &cfg.JWT)
	user := createTestUser(t, db, "grace@example.com", "password123", models.AuthTypeLocal, true)

	pair, err := svc.Issue(user, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	want := pair.AccessExpiresAt.AddDate(0, 0, cfg.JWT.RefreshGraceDays)
	if !pair.RefreshExpiresAt.Equal(want) {
		t.Errorf("refresh expiry = %v, expected %v", pair.RefreshExpiresAt, want)
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token must outlive the access token")
	}
}

func TestIssue_SystemConfigOverridesLifetimes(t *testing.T) {
	db := openTestDB(t)
	cfg := testConfig()
	svc := NewTokenService(db, &cfg.JWT)
	configSvc := NewSystemConfigService(db)
	user := createTestUser(t, db, "override@example.com", "password123", models.AuthTypeLocal, true)

	if err := configSvc.Set("auth_access_token_expire_hours", strconv.Itoa(2)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := configSvc.Set("auth_refresh_token_grace_days", strconv.Itoa(1)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	pair, err := svc.Issue(user, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	accessWindow := time.Until(pair.AccessExpiresAt)
	if accessWindow < time.Hour || accessWindow > 3*time.Hour {
		t.Errorf("access window = %v, expected about 2h", accessWindow)
	}

	want := pair.AccessExpiresAt.AddDate(0, 0, 1)
	if !pair.RefreshExpiresAt.Equal(want) {
		t.Errorf("refresh expiry = %v, expected %v", pair.RefreshExpiresAt, want)
	}
}

func TestIssue_DistinctJTIs(t *testing.T) {
	db := openTestDB(t)
	svc := NewTokenService(db, &testConfig().JWT)
	user := createTestUser(t, db, "distinct@example.com", "password123", models.AuthTypeLocal, true)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		pair, err := svc.Issue(user, "", "")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if seen[pair.JTI] {
			t.Fatalf("duplicate jti issued: %s", pair.JTI)
		}
		seen[pair.JTI] = true
	}
}

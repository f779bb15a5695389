package services

import (
	"time"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/models"
	"github.com/authgate/authgate/internal/utils"
	"gorm.io/gorm"
)

// TokenService mints access/refresh token pairs. The signed access token is
// stateless-verifiable; the opaque refresh token requires a ledger lookup.
// Both ledger records are written in one transaction so a half-issued pair is
// never observable.
type TokenService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
	configSvc *SystemConfigService
}

func NewTokenService(db *gorm.DB, jwtCfg *config.JWTConfig) *TokenService {
	return &TokenService{
		db:        db,
		jwtConfig: jwtCfg,
		configSvc: NewSystemConfigService(db),
	}
}

// IssuedPair is the unit handed to a caller after login, registration or
// rotation. RefreshToken is the raw opaque value; it is returned exactly once
// and only its hash is kept.
type IssuedPair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	JTI              string    `json:"-"`
}

// Issue mints a fresh pair for the user: a signed access token whose jti keys
// the new ledger row, and a sibling refresh token expiring a grace window
// after the access token does.
func (s *TokenService) Issue(user *models.User, clientIP, userAgent string) (*IssuedPair, error) {
	jti, err := utils.NewJTI()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accessExpiresAt := now.Add(time.Duration(s.accessExpireHours()) * time.Hour)

	signed, err := utils.GenerateToken(user.ID, user.Email, user.Role, jti, now, accessExpiresAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := utils.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	refreshExpiresAt := accessExpiresAt.AddDate(0, 0, s.refreshGraceDays())

	accessRecord := models.AccessToken{
		ID:        jti,
		UserID:    user.ID,
		Revoked:   false,
		ExpiresAt: accessExpiresAt,
	}
	refreshRecord := models.RefreshToken{
		TokenHash:     utils.HashToken(refreshToken),
		AccessTokenID: jti,
		Revoked:       false,
		ExpiresAt:     refreshExpiresAt,
		CreatedByIP:   clientIP,
		UserAgent:     userAgent,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&accessRecord).Error; err != nil {
			return err
		}
		return tx.Create(&refreshRecord).Error
	}); err != nil {
		return nil, err
	}

	return &IssuedPair{
		AccessToken:      signed,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
		JTI:              jti,
	}, nil
}

func (s *TokenService) accessExpireHours() int {
	return s.configSvc.GetInt("auth_access_token_expire_hours", s.jwtConfig.AccessExpireHour)
}

func (s *TokenService) refreshGraceDays() int {
	return s.configSvc.GetInt("auth_refresh_token_grace_days", s.jwtConfig.RefreshGraceDays)
}

package services

import (
	"errors"
	"time"

	"github.com/authgate/authgate/internal/models"
	"gorm.io/gorm"
)

// LedgerService is the source of truth for token validity. Every check is a
// fresh read; nothing is cached. Revocations are synchronous conditional
// writes so a failed revoke is reported, never swallowed, and concurrent
// revoke attempts on the same row resolve to exactly one winner.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// FindAccess returns the ledger record for a jti, or nil when absent.
func (s *LedgerService) FindAccess(jti string) (*models.AccessToken, error) {
	var record models.AccessToken
	if err := s.db.Where("id = ?", jti).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindRefreshByHash returns the refresh record for a token hash with its
// sibling access record preloaded, or nil when absent.
func (s *LedgerService) FindRefreshByHash(hash string) (*models.RefreshToken, error) {
	var record models.RefreshToken
	err := s.db.Preload("AccessToken").Where("token_hash = ?", hash).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// RevokePair flips revoked on a refresh token and its sibling access token as
// one unit. Both updates are guarded on revoked = false inside a single
// transaction: when two rotations race on the same refresh token, exactly one
// commits and the loser gets ErrInvalidToken.
func (s *LedgerService) RevokePair(refreshID uint, accessJTI string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", refreshID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}

		res = tx.Model(&models.AccessToken{}).
			Where("id = ? AND revoked = ?", accessJTI, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}
		return nil
	})
}

// RevokeByJTI flips revoked on the access token and, by join, on any refresh
// token issued alongside it, so a logged-out access token cannot be used to
// mint a fresh pair through its still-live refresh companion.
func (s *LedgerService) RevokeByJTI(jti string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AccessToken{}).
			Where("id = ?", jti).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("access_token_id = ?", jti).
			Update("revoked", true).Error
	})
}

// RevokeAllForUser flips revoked on every token pair owned by the user except
// the one identified by exceptJTI ("sign out everywhere but here"). Pass an
// empty exceptJTI to revoke everything.
func (s *LedgerService) RevokeAllForUser(userID uint, exceptJTI string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		accessQuery := tx.Model(&models.AccessToken{}).Where("user_id = ?", userID)
		siblingQuery := tx.Model(&models.AccessToken{}).
			Select("id").
			Where("user_id = ?", userID)
		if exceptJTI != "" {
			accessQuery = accessQuery.Where("id != ?", exceptJTI)
			siblingQuery = siblingQuery.Where("id != ?", exceptJTI)
		}

		if err := tx.Model(&models.RefreshToken{}).
			Where("access_token_id IN (?)", siblingQuery).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return accessQuery.Update("revoked", true).Error
	})
}

// ListActiveForUser returns the user's unrevoked, unexpired access records,
// newest first. Used for the session listing endpoint.
func (s *LedgerService) ListActiveForUser(userID uint) ([]models.AccessToken, error) {
	var records []models.AccessToken
	err := s.db.
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PurgeExpired deletes token rows whose expiry lies more than retention in
// the past. Revoked-but-unexpired rows are kept: they are still the record
// that a token must not validate.
func (s *LedgerService) PurgeExpired(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	var purged int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expires_at < ?", cutoff).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		purged += res.RowsAffected

		res = tx.Where("expires_at < ?", cutoff).Delete(&models.AccessToken{})
		if res.Error != nil {
			return res.Error
		}
		purged += res.RowsAffected
		return nil
	})
	return purged, err
}

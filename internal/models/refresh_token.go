package models

import "time"

// RefreshToken is the ledger record for one refresh token. The opaque token
// value is never stored; only its SHA-256 hash is kept for lookup.
// AccessTokenID is the jti of the sibling access token issued alongside it,
// set at creation and immutable. ExpiresAt is the sibling's expiry plus a
// grace window so a pair can still be rotated shortly after the access token
// expires.
type RefreshToken struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	TokenHash     string      `gorm:"uniqueIndex;size:64;not null" json:"-"`
	AccessTokenID string      `gorm:"index;size:64;not null" json:"access_token_id"`
	AccessToken   AccessToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Revoked       bool        `gorm:"default:false;not null" json:"revoked"`
	ExpiresAt     time.Time   `gorm:"index;not null" json:"expires_at"`
	CreatedByIP   string      `gorm:"size:64" json:"created_by_ip,omitempty"`
	UserAgent     string      `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

package models

import "time"

// AccessToken is the ledger record for one issued access token, keyed by the
// token's jti claim. Revoked is monotonic: once flipped to true it is never
// reset. Rows are only removed by the expired-token purge or a cascading user
// delete.
type AccessToken struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"` // jti, 32 random bytes hex-encoded
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Revoked   bool      `gorm:"default:false;not null" json:"revoked"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AccessToken) TableName() string { return "access_tokens" }

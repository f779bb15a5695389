package models

import "time"

// AuditLog records security-relevant events: logins, token rotations,
// revocations, account conflicts. Revocation failures land here too so a
// failed revoke is never silent.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Event     string    `gorm:"size:100;index" json:"event"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `json:"user_id"`
	JTI       string    `gorm:"size:64;index" json:"jti,omitempty"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

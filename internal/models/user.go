package models

import (
	"time"

	"gorm.io/gorm"
)

// Auth methods a user account can be bound to. A user registered with a
// password has AuthType "local"; social accounts carry the provider name.
const (
	AuthTypeLocal    = "local"
	AuthTypeLDAP     = "ldap"
	AuthTypeGoogle   = "google"
	AuthTypeGitHub   = "github"
	AuthTypeFacebook = "facebook"
)

// User represents an account. Password is empty for social and LDAP users.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Email      string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password   string         `gorm:"size:255" json:"-"`
	FirstName  string         `gorm:"size:100" json:"first_name"`
	LastName   string         `gorm:"size:100" json:"last_name"`
	Avatar     string         `gorm:"size:500" json:"avatar"`
	Role       string         `gorm:"size:50;default:user" json:"role"` // admin, user
	AuthType   string         `gorm:"size:20;default:local" json:"auth_type"`
	ProviderID string         `gorm:"size:255" json:"-"` // provider-assigned subject id for social accounts
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastLogin  *time.Time     `json:"last_login"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// IsSocial reports whether the account was created through a social provider.
func (u *User) IsSocial() bool {
	return u.AuthType != AuthTypeLocal && u.AuthType != AuthTypeLDAP
}

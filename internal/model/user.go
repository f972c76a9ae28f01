package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a dashboard account. Every user holds exactly one role.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(64);not null" json:"name"`
	BnName        *string        `gorm:"type:varchar(64)" json:"bn_name"`
	Email         *string        `gorm:"type:varchar(255);uniqueIndex:idx_users_email_active,where:deleted_at IS NULL" json:"email"`
	Phone         *string        `gorm:"type:varchar(20)" json:"phone"`
	Designation   *string        `gorm:"type:varchar(255)" json:"designation"`
	BnDesignation *string        `gorm:"type:varchar(255)" json:"bn_designation"`
	Password      string         `gorm:"type:varchar(255);not null" json:"-"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	RoleID        *uuid.UUID     `gorm:"type:uuid;index" json:"role_id"`
	Role          *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// RoleName returns the name of the assigned role, or "" when none is loaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

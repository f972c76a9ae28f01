package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssociationType is a trade association (BGMEA, BKMEA, ...) that reports through the platform.
type AssociationType struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Description *string        `gorm:"type:text" json:"description"`
	AppKey      *string        `gorm:"type:varchar(255);uniqueIndex" json:"app_key"`
	ValidUntil  *time.Time     `gorm:"type:date;index" json:"valid_until"`
	Token       *string        `gorm:"type:text;uniqueIndex" json:"token"` // credential for pulling data from the association's system
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StakeholderType enum constants
const (
	StakeholderTypeGovernment = "Government"
	StakeholderTypeAutonomous = "Autonomous"
	StakeholderTypeNGO        = "NGO"
	StakeholderTypePrivate    = "Private Sector"
	StakeholderTypeOther      = "Other"
)

// StakeholderTypes lists every accepted stakeholder type.
var StakeholderTypes = []string{
	StakeholderTypeGovernment,
	StakeholderTypeAutonomous,
	StakeholderTypeNGO,
	StakeholderTypePrivate,
	StakeholderTypeOther,
}

// Stakeholder is an external organisation contact with its own login.
type Stakeholder struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type          string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	BnName        *string        `gorm:"type:varchar(255)" json:"bn_name"`
	Designation   *string        `gorm:"type:varchar(255)" json:"designation"`
	BnDesignation *string        `gorm:"type:varchar(255)" json:"bn_designation"`
	Mobile        string         `gorm:"type:varchar(20);not null;index" json:"mobile"`
	Email         string         `gorm:"type:varchar(250);not null;index" json:"email"`
	Password      string         `gorm:"type:varchar(255);not null" json:"-"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

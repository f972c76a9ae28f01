package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DynamicForm type enum constants
const (
	FormTypeAssessment = "Assessment"
	FormTypeMonitoring = "Monitoring"
)

// Input types whose elements must carry a non-empty options payload.
const (
	InputTypeRadio       = "radio"
	InputTypeSelect      = "select"
	InputTypeMultiSelect = "multiSelect"
	InputTypeCheckbox    = "checkbox"
)

// FormInput is a reusable input type definition (text, select, date, ...).
type FormInput struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Type      string    `gorm:"type:varchar(255);not null" json:"type"`
	Icon      *string   `gorm:"type:varchar(255)" json:"icon"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Component string    `gorm:"type:varchar(255);not null" json:"component"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DynamicForm is a configured form made of ordered elements.
type DynamicForm struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type      string             `gorm:"type:varchar(20);not null;index" json:"type"`
	Name      string             `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	IsActive  bool               `gorm:"default:true" json:"is_active"`
	Elements  []DynamicFormInput `gorm:"foreignKey:DynamicFormID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"elements,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// DynamicFormInput is one element of a form. A form holds at most one element per input type.
type DynamicFormInput struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DynamicFormID uuid.UUID      `gorm:"type:uuid;not null;index" json:"dynamic_form_id"`
	FormInputID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"form_input_id"`
	FormInput     *FormInput     `gorm:"foreignKey:FormInputID" json:"form_input,omitempty"`
	Sort          int            `gorm:"not null;default:0" json:"sort"`
	Label         string         `gorm:"type:varchar(255);not null" json:"label"`
	Type          string         `gorm:"type:varchar(255);not null" json:"type"`
	Placeholder   *string        `gorm:"type:varchar(255)" json:"placeholder"`
	Options       datatypes.JSON `json:"options"`
	Required      bool           `gorm:"default:false" json:"required"`
	HasAction     bool           `gorm:"default:false" json:"has_action"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateRole  = "CREATE_ROLE"
	ActionUpdateRole  = "UPDATE_ROLE"
	ActionDeleteRole  = "DELETE_ROLE"
	ActionRestoreRole = "RESTORE_ROLE"

	ActionCreateUser     = "CREATE_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionDeleteUser     = "DELETE_USER"
	ActionChangePassword = "CHANGE_PASSWORD"

	ActionCreateAssociationType     = "CREATE_ASSOCIATION_TYPE"
	ActionUpdateAssociationType     = "UPDATE_ASSOCIATION_TYPE"
	ActionDeleteAssociationType     = "DELETE_ASSOCIATION_TYPE"
	ActionBulkDeleteAssociationType = "BULK_DELETE_ASSOCIATION_TYPE"
	ActionBulkStatusAssociationType = "BULK_STATUS_ASSOCIATION_TYPE"
	ActionExpireAssociationType     = "EXPIRE_ASSOCIATION_TYPE"

	ActionCreateStakeholder = "CREATE_STAKEHOLDER"
	ActionUpdateStakeholder = "UPDATE_STAKEHOLDER"
	ActionDeleteStakeholder = "DELETE_STAKEHOLDER"

	ActionCreateForm = "CREATE_FORM"
	ActionUpdateForm = "UPDATE_FORM"
	ActionDeleteForm = "DELETE_FORM"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for scheduled jobs
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

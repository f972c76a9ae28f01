package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Built-in role names. Locked roles can never be renamed or deleted.
const (
	RoleSuperAdmin  = "Super Admin"
	RoleAdmin       = "Admin"
	RoleAssociation = "Association"
	RoleRMG         = "RMG"
	RoleManager     = "Manager"
	RoleGuest       = "Guest"
)

// LockedRoles lists the built-in roles in seeding order.
var LockedRoles = []string{
	RoleSuperAdmin,
	RoleAdmin,
	RoleAssociation,
	RoleRMG,
	RoleManager,
	RoleGuest,
}

// IsLockedRole reports whether name belongs to a built-in role.
func IsLockedRole(name string) bool {
	for _, locked := range LockedRoles {
		if locked == name {
			return true
		}
	}
	return false
}

// Role groups permissions and is assigned to users.
// The name is only unique among roles that are not soft-deleted.
type Role struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(48);not null;uniqueIndex:idx_roles_name_active,where:deleted_at IS NULL" json:"name"`
	ForPartner  bool           `gorm:"default:false" json:"for_partner"`
	Deleteable  bool           `gorm:"default:true" json:"deleteable"`
	Hideable    bool           `gorm:"default:false" json:"hideable"`
	Permissions []Permission   `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// IsLocked reports whether the role is one of the built-in roles.
func (r *Role) IsLocked() bool {
	return IsLockedRole(r.Name)
}

// Permission is the persisted mirror of a catalog entry, e.g. "role_delete".
type Permission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Module      string    `gorm:"type:varchar(50);not null;index" json:"module"`
	Group       string    `gorm:"type:varchar(50)" json:"group"`
	Description string    `gorm:"type:text" json:"description"`
}

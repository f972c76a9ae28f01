// Package policy decides whether an authenticated actor may perform an
// ability on a resource.
package policy

import (
	"backoffice/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated user a request runs on behalf of.
type Actor struct {
	UserID      uuid.UUID
	RoleID      uuid.UUID
	RoleName    string
	Permissions map[string]bool
}

// NewActor builds an actor from the codes granted to its role.
func NewActor(userID, roleID uuid.UUID, roleName string, codes []string) *Actor {
	perms := make(map[string]bool, len(codes))
	for _, c := range codes {
		perms[c] = true
	}
	return &Actor{UserID: userID, RoleID: roleID, RoleName: roleName, Permissions: perms}
}

// IsSuperAdmin reports whether the actor holds the Super Admin role.
func (a *Actor) IsSuperAdmin() bool {
	return a != nil && a.RoleName == model.RoleSuperAdmin
}

// Can reports whether the actor's role grants the permission.
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	return a.Permissions[permission]
}

// Codes returns the granted permission codes.
func (a *Actor) Codes() []string {
	if a == nil {
		return nil
	}
	out := make([]string, 0, len(a.Permissions))
	for c := range a.Permissions {
		out = append(out, c)
	}
	return out
}

// RestrictedRoles returns the role names the actor may neither see nor manage.
func (a *Actor) RestrictedRoles() []string {
	if a == nil {
		return []string{model.RoleSuperAdmin, model.RoleAdmin}
	}
	return RestrictedRolesFor(a.RoleName)
}

// IsRestricted reports whether roleName is hidden from the actor.
func (a *Actor) IsRestricted(roleName string) bool {
	for _, r := range a.RestrictedRoles() {
		if r == roleName {
			return true
		}
	}
	return false
}

// RestrictedRolesFor maps an acting role to the roles it must not manage.
func RestrictedRolesFor(roleName string) []string {
	switch roleName {
	case model.RoleSuperAdmin:
		return []string{model.RoleSuperAdmin}
	case model.RoleRMG:
		return []string{model.RoleSuperAdmin, model.RoleAdmin, model.RoleAssociation, model.RoleGuest}
	default:
		return []string{model.RoleSuperAdmin, model.RoleAdmin}
	}
}

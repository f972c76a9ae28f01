package policy

import (
	"backoffice/internal/model"
	"backoffice/internal/permission"
)

// Resources
const (
	ResourceRole            = permission.ModuleRole
	ResourceUser            = permission.ModuleUser
	ResourceFormBuilder     = permission.ModuleFormBuilder
	ResourceAssociationType = permission.ModuleAssociationType
	ResourceStakeholder     = permission.ModuleStakeholder
	ResourceAuditLog        = permission.ModuleAuditLog
)

func rolePolicy(actor *Actor, ability string, target any) Decision {
	switch ability {
	case ViewAny, View:
		return allowIf(actor.Can(permission.Permission(permission.ModuleRole, permission.AbilityAccess)))
	case Create:
		return allowIf(actor.Can(permission.Permission(permission.ModuleRole, permission.AbilityCreate)))
	case Update, Restore:
		if role, ok := target.(*model.Role); ok && actor.IsRestricted(role.Name) {
			return Deny("")
		}
		return allowIf(actor.Can(permission.Permission(permission.ModuleRole, permission.AbilityUpdate)))
	case Delete:
		return allowIf(actor.Can(permission.Permission(permission.ModuleRole, permission.AbilityDelete)))
	}
	return Deny("")
}

func userPolicy(actor *Actor, ability string, target any) Decision {
	user, _ := target.(*model.User)
	restricted := user != nil && actor.IsRestricted(user.RoleName())

	switch ability {
	case ViewAny:
		return allowIf(actor.Can(permission.Permission(permission.ModuleUser, permission.AbilityAccess)))
	case View:
		if restricted {
			return DenyAsNotFound()
		}
		return allowIf(actor.Can(permission.Permission(permission.ModuleUser, permission.AbilityAccess)))
	case Create:
		return allowIf(actor.Can(permission.Permission(permission.ModuleUser, permission.AbilityCreate)))
	case Update, Delete, Password:
		if restricted {
			return Deny("")
		}
		return allowIf(actor.Can(permission.Permission(permission.ModuleUser, ability)))
	}
	return Deny("")
}

func formBuilderPolicy(actor *Actor, ability string, _ any) Decision {
	switch ability {
	case ViewAny, View:
		if !actor.Can(permission.Permission(permission.ModuleFormBuilder, permission.AbilityAccess)) {
			return DenyAsNotFound()
		}
		return Allow()
	case Create, Update:
		switch actor.RoleName {
		case model.RoleRMG, model.RoleManager, model.RoleGuest:
			return Deny("")
		}
		return allowIf(actor.Can(permission.Permission(permission.ModuleFormBuilder, ability)))
	case Delete:
		switch actor.RoleName {
		case model.RoleAssociation, model.RoleRMG, model.RoleManager, model.RoleGuest:
			return Deny("")
		}
		return allowIf(actor.Can(permission.Permission(permission.ModuleFormBuilder, permission.AbilityDelete)))
	}
	return Deny("")
}

func associationTypePolicy(actor *Actor, ability string, _ any) Decision {
	return modulePolicy(actor, permission.ModuleAssociationType, ability)
}

func stakeholderPolicy(actor *Actor, ability string, _ any) Decision {
	return modulePolicy(actor, permission.ModuleStakeholder, ability)
}

func auditLogPolicy(actor *Actor, ability string, _ any) Decision {
	if ability != ViewAny && ability != View {
		return Deny("")
	}
	return allowIf(actor.Can(permission.Permission(permission.ModuleAuditLog, permission.AbilityAccess)))
}

// modulePolicy maps abilities one to one onto catalog permissions.
func modulePolicy(actor *Actor, module, ability string) Decision {
	switch ability {
	case ViewAny, View:
		ability = permission.AbilityAccess
	case Restore, ForceDelete:
		ability = permission.AbilityDelete
	}
	return allowIf(actor.Can(permission.Permission(module, ability)))
}

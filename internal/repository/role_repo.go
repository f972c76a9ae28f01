package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleListFilter struct {
	ListOptions
	ExcludeNames []string
}

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter RoleListFilter) ([]model.Role, int64, error)
	ListAssignable(ctx context.Context, excludeNames []string) ([]model.Role, error)
	CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error)
	PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, codes []string) error
	ClearPermissions(ctx context.Context, roleID uuid.UUID) error
	FindOrCreatePermission(ctx context.Context, perm *model.Permission) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit("Permissions").Save(role).Error
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Role{}).Error
}

func (r *roleRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Unscoped().Model(&model.Role{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Unscoped().First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFound(err)
	}
	return &role, nil
}

// NameTaken checks the name against roles that are not soft-deleted.
func (r *roleRepository) NameTaken(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := GetDB(ctx, r.db).Model(&model.Role{}).Where("name = ?", name)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roleRepository) List(ctx context.Context, filter RoleListFilter) ([]model.Role, int64, error) {
	var roles []model.Role
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Role{})
	if len(filter.ExcludeNames) > 0 {
		query = query.Where("name NOT IN ?", filter.ExcludeNames)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", likePattern(filter.Search))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderClause(filter.ListOptions, "name", "for_partner", "created_at", "updated_at")
	if err := paginate(query.Order(order), filter.ListOptions).Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepository) ListAssignable(ctx context.Context, excludeNames []string) ([]model.Role, error) {
	var roles []model.Role
	query := GetDB(ctx, r.db).Where("hideable = ?", false)
	if len(excludeNames) > 0 {
		query = query.Where("name NOT IN ?", excludeNames)
	}
	if err := query.Order("name asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) CountUsers(ctx context.Context, roleID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}

func (r *roleRepository) PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	var codes []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
	`, roleID).Scan(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ReplacePermissions syncs the role's grants to exactly codes.
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, codes []string) error {
	db := GetDB(ctx, r.db)
	role := model.Role{ID: roleID}

	var perms []model.Permission
	if len(codes) > 0 {
		if err := db.Where("code IN ?", codes).Find(&perms).Error; err != nil {
			return err
		}
	}
	return db.Model(&role).Association("Permissions").Replace(perms)
}

func (r *roleRepository) ClearPermissions(ctx context.Context, roleID uuid.UUID) error {
	role := model.Role{ID: roleID}
	return GetDB(ctx, r.db).Model(&role).Association("Permissions").Clear()
}

func (r *roleRepository) FindOrCreatePermission(ctx context.Context, perm *model.Permission) error {
	return GetDB(ctx, r.db).
		Where("code = ?", perm.Code).
		Assign(model.Permission{Module: perm.Module, Group: perm.Group, Description: perm.Description}).
		FirstOrCreate(perm).Error
}

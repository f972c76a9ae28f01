package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/permission"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Role events broadcast to connected dashboards.
const (
	EventRoleUpdated  = "role.updated"
	EventRoleDeleted  = "role.deleted"
	EventRoleRestored = "role.restored"
)

// PermissionCache drops the cached permission codes of a role.
type PermissionCache interface {
	Invalidate(roleID uuid.UUID)
}

// EventPublisher pushes realtime events to connected clients.
type EventPublisher interface {
	Publish(event string, data interface{})
}

// --- DTOs ---

// PermissionSelection accepts either a list of keys or the tree selection
// map {"key": {"checked": true}} and keeps the keys in request order.
type PermissionSelection []string

func (p *PermissionSelection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if data[0] == '[' {
		var keys []string
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		*p = keys
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	keys := PermissionSelection{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected permission key %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
		keys = append(keys, key)
	}
	*p = keys
	return nil
}

type RoleRequest struct {
	RoleName    string              `json:"roleName" validate:"required,max=48"`
	ForPartner  bool                `json:"forPartner"`
	Permissions PermissionSelection `json:"permissions"`
}

type RoleListRequest struct {
	Search    string
	OrderBy   string
	Direction string
	Page      int
	Limit     int
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ForPartner  bool     `json:"for_partner"`
	Deletable   bool     `json:"deletable"`
	Hideable    bool     `json:"hideable"`
	Permissions []string `json:"permissions,omitempty"`
	CreatedAt   string   `json:"created_at"`
	DeletedAt   *string  `json:"deleted_at,omitempty"`
}

type RoleEditResponse struct {
	Role         RoleResponse                          `json:"role"`
	NameEditable bool                                  `json:"name_editable"`
	Selected     map[string]permission.SelectionState `json:"selected"`
	Tree         []permission.Node                     `json:"tree"`
}

type AssignableRoleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// --- Interface ---

type RoleService interface {
	List(ctx context.Context, actor *policy.Actor, req RoleListRequest) ([]RoleResponse, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Role, error)
	Create(ctx context.Context, actor *policy.Actor, req RoleRequest) (*RoleResponse, error)
	Update(ctx context.Context, actor *policy.Actor, id uuid.UUID, req RoleRequest) (*RoleResponse, error)
	Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error
	Restore(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*RoleResponse, error)
	Edit(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*RoleEditResponse, error)
	PermissionTree(actor *policy.Actor) []permission.Node
	AssignableRoles(ctx context.Context, actor *policy.Actor) ([]AssignableRoleResponse, error)
	PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error)
	Seed(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	cache     PermissionCache
	events    EventPublisher
	logger    *zap.Logger
}

func NewRoleService(
	roleRepo repository.RoleRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cache PermissionCache,
	events EventPublisher,
	logger *zap.Logger,
) RoleService {
	return &roleService{
		roleRepo:  roleRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		cache:     cache,
		events:    events,
		logger:    logger,
	}
}

// --- Validation ---

func (s *roleService) validate(ctx context.Context, actor *policy.Actor, req RoleRequest, excludeID *uuid.UUID) (*ValidationError, error) {
	verr := validateStruct(req)
	req.RoleName = strings.TrimSpace(req.RoleName)

	if !verr.Has("roleName") {
		taken, err := s.roleRepo.NameTaken(ctx, req.RoleName, excludeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check role name: %w", err)
		}
		if taken {
			verr.Add("roleName", "The role name has already been taken.")
		}
	}

	if len(req.Permissions) == 0 {
		verr.Add("permissions", "Please select some permissions.")
	}
	for _, key := range req.Permissions {
		if permission.IsPlaceholder(key) {
			continue
		}
		if !permission.IsValid(key) {
			verr.Add("permissions", fmt.Sprintf("Invalid permission \"%s\" selected.", permission.Headline(key)))
			continue
		}
		if !actor.IsSuperAdmin() && !actor.Can(key) {
			verr.Add("permissions", fmt.Sprintf("You are not allowed to grant the \"%s\" permission.", permission.Headline(key)))
		}
	}
	return verr, nil
}

// --- Implementation ---

func (s *roleService) List(ctx context.Context, actor *policy.Actor, req RoleListRequest) ([]RoleResponse, int64, error) {
	filter := repository.RoleListFilter{
		ListOptions: repository.ListOptions{
			Search:    req.Search,
			OrderBy:   req.OrderBy,
			Direction: req.Direction,
			Offset:    (req.Page - 1) * req.Limit,
			Limit:     req.Limit,
		},
		ExcludeNames: actor.RestrictedRoles(),
	}

	roles, total, err := s.roleRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r, nil))
	}
	return res, total, nil
}

func (s *roleService) Get(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	return role, nil
}

func (s *roleService) Create(ctx context.Context, actor *policy.Actor, req RoleRequest) (*RoleResponse, error) {
	verr, err := s.validate(ctx, actor, req, nil)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	role := &model.Role{
		Name:       strings.TrimSpace(req.RoleName),
		ForPartner: req.ForPartner,
		Deleteable: true,
	}
	codes := permission.FilterValid(req.Permissions)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Create(txCtx, role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if err := s.roleRepo.ReplacePermissions(txCtx, role.ID, codes); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionCreateRole, role.ID.String(), role.Name, map[string]interface{}{
			"for_partner": role.ForPartner,
			"permissions": codes,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Role created", zap.String("role_id", role.ID.String()), zap.String("name", role.Name), zap.Int("permissions", len(codes)))
	resp := toRoleResponse(*role, codes)
	return &resp, nil
}

func (s *roleService) Update(ctx context.Context, actor *policy.Actor, id uuid.UUID, req RoleRequest) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}

	verr, err := s.validate(ctx, actor, req, &role.ID)
	if err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	// locked roles keep their identity; only the grants change
	if !role.IsLocked() {
		role.Name = strings.TrimSpace(req.RoleName)
		role.ForPartner = req.ForPartner
	}
	codes := permission.FilterValid(req.Permissions)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		if err := s.roleRepo.ReplacePermissions(txCtx, role.ID, codes); err != nil {
			return fmt.Errorf("failed to sync permissions: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionUpdateRole, role.ID.String(), role.Name, map[string]interface{}{
			"for_partner": role.ForPartner,
			"permissions": codes,
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterRoleChange(EventRoleUpdated, role)
	resp := toRoleResponse(*role, codes)
	return &resp, nil
}

func (s *roleService) Delete(ctx context.Context, actor *policy.Actor, id uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch role: %w", err)
	}

	if role.IsLocked() {
		return reject("You are not allowed to delete this role.")
	}

	users, err := s.roleRepo.CountUsers(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to count role users: %w", err)
	}
	if users > 0 {
		return reject("Please delete all the users of this role first and then try again.")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.ClearPermissions(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to clear permissions: %w", err)
		}
		if err := s.roleRepo.Delete(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionDeleteRole, role.ID.String(), role.Name, nil)
	})
	if err != nil {
		return err
	}

	s.afterRoleChange(EventRoleDeleted, role)
	return nil
}

func (s *roleService) Restore(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*RoleResponse, error) {
	role, err := s.roleRepo.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	if !role.DeletedAt.Valid {
		return nil, reject("This role is not deleted.")
	}

	taken, err := s.roleRepo.NameTaken(ctx, role.Name, &role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check role name: %w", err)
	}
	if taken {
		return nil, reject(fmt.Sprintf("Another role named \"%s\" already exists.", role.Name))
	}

	var fresh *model.Role
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roleRepo.Restore(txCtx, role.ID); err != nil {
			return fmt.Errorf("failed to restore role: %w", err)
		}
		if err := logAudit(txCtx, s.auditRepo, actor, model.ActionRestoreRole, role.ID.String(), role.Name, nil); err != nil {
			return err
		}
		restored, findErr := s.roleRepo.FindByID(txCtx, role.ID)
		if findErr != nil {
			return fmt.Errorf("failed to reload role: %w", findErr)
		}
		fresh = restored
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterRoleChange(EventRoleRestored, fresh)
	resp := toRoleResponse(*fresh, nil)
	return &resp, nil
}

func (s *roleService) Edit(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*RoleEditResponse, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role: %w", err)
	}
	codes, err := s.roleRepo.PermissionCodes(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role permissions: %w", err)
	}

	return &RoleEditResponse{
		Role:         toRoleResponse(*role, codes),
		NameEditable: !role.IsLocked(),
		Selected:     permission.Selection(codes),
		Tree:         s.PermissionTree(actor),
	}, nil
}

func (s *roleService) PermissionTree(actor *policy.Actor) []permission.Node {
	return permission.Tree(actor.Codes(), actor.IsSuperAdmin())
}

func (s *roleService) AssignableRoles(ctx context.Context, actor *policy.Actor) ([]AssignableRoleResponse, error) {
	exclude := append([]string{model.RoleSuperAdmin}, actor.RestrictedRoles()...)
	roles, err := s.roleRepo.ListAssignable(ctx, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignable roles: %w", err)
	}

	res := make([]AssignableRoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, AssignableRoleResponse{ID: r.ID.String(), Name: r.Name})
	}
	return res, nil
}

func (s *roleService) PermissionCodes(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	codes, err := s.roleRepo.PermissionCodes(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role permissions: %w", err)
	}
	return codes, nil
}

// Seed upserts every catalog permission, creates the missing built-in roles
// and grants Super Admin the full catalog.
func (s *roleService) Seed(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, code := range permission.All() {
			d, _ := permission.Lookup(code)
			perm := &model.Permission{
				Code:        code,
				Module:      d.Module,
				Group:       d.Group,
				Description: d.Description,
			}
			if err := s.roleRepo.FindOrCreatePermission(txCtx, perm); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", code, err)
			}
		}

		for _, name := range model.LockedRoles {
			role, err := s.roleRepo.FindByName(txCtx, name)
			if errors.Is(err, repository.ErrNotFound) {
				role = &model.Role{Name: name, Deleteable: false}
				if err := s.roleRepo.Create(txCtx, role); err != nil {
					return fmt.Errorf("failed to seed role '%s': %w", name, err)
				}
				s.logger.Info("Seeded role", zap.String("name", name))
			} else if err != nil {
				return fmt.Errorf("failed to look up role '%s': %w", name, err)
			}

			if name == model.RoleSuperAdmin {
				if err := s.roleRepo.ReplacePermissions(txCtx, role.ID, permission.All()); err != nil {
					return fmt.Errorf("failed to grant super admin permissions: %w", err)
				}
			}
		}
		return nil
	})
}

func (s *roleService) afterRoleChange(event string, role *model.Role) {
	if s.cache != nil {
		s.cache.Invalidate(role.ID)
	}
	if s.events != nil {
		s.events.Publish(event, map[string]interface{}{"id": role.ID.String(), "name": role.Name})
	}
	s.logger.Info("Role changed", zap.String("event", event), zap.String("role_id", role.ID.String()), zap.String("name", role.Name))
}

// --- Helpers ---

func toRoleResponse(r model.Role, codes []string) RoleResponse {
	resp := RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		ForPartner:  r.ForPartner,
		Deletable:   !r.IsLocked(),
		Hideable:    r.Hideable,
		Permissions: codes,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.DeletedAt.Valid {
		deleted := r.DeletedAt.Time.Format(time.RFC3339)
		resp.DeletedAt = &deleted
	}
	return resp
}

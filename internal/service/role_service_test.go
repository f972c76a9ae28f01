package service

import (
	"context"
	"encoding/json"
	"testing"

	"backoffice/internal/model"
	"backoffice/internal/permission"
	"backoffice/internal/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type roleFixture struct {
	svc    RoleService
	repo   *fakeRoleRepo
	audit  *fakeAudit
	tx     *fakeTx
	cache  *fakeCache
	events *fakeEvents
}

func newRoleFixture() *roleFixture {
	f := &roleFixture{
		repo:   newFakeRoleRepo(),
		audit:  &fakeAudit{},
		tx:     &fakeTx{},
		cache:  &fakeCache{},
		events: &fakeEvents{},
	}
	f.svc = NewRoleService(f.repo, f.audit, f.tx, f.cache, f.events, zap.NewNop())
	return f
}

func superAdmin() *policy.Actor {
	return policy.NewActor(uuid.New(), uuid.New(), model.RoleSuperAdmin, nil)
}

func TestPermissionSelection_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want PermissionSelection
	}{
		{"list", `["role_access","role_create"]`, PermissionSelection{"role_access", "role_create"}},
		{"tree map keeps order", `{"user-management":{"checked":true},"role":{"checked":true},"role_access":{"checked":true}}`,
			PermissionSelection{"user-management", "role", "role_access"}},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PermissionSelection
			require.NoError(t, json.Unmarshal([]byte(tt.body), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleCreate_FiltersPlaceholders(t *testing.T) {
	f := newRoleFixture()

	resp, err := f.svc.Create(context.Background(), superAdmin(), RoleRequest{
		RoleName:    "Inspector",
		Permissions: PermissionSelection{"user-management", "role", "role_access", "role_create"},
	})
	require.NoError(t, err)

	id := uuid.MustParse(resp.ID)
	assert.Equal(t, []string{"role_access", "role_create"}, f.repo.grants[id])
	assert.Equal(t, []string{model.ActionCreateRole}, f.audit.actions())
	assert.Equal(t, 1, f.tx.commits)
}

func TestRoleCreate_Validation(t *testing.T) {
	f := newRoleFixture()
	f.repo.add("Inspector")
	manager := policy.NewActor(uuid.New(), uuid.New(), model.RoleManager, []string{"role_access", "role_create"})

	tests := []struct {
		name  string
		actor *policy.Actor
		req   RoleRequest
		field string
		msg   string
	}{
		{"duplicate name", superAdmin(), RoleRequest{RoleName: "Inspector", Permissions: PermissionSelection{"role_access"}},
			"roleName", "The role name has already been taken."},
		{"no permissions", superAdmin(), RoleRequest{RoleName: "Auditor"},
			"permissions", "Please select some permissions."},
		{"unknown permission", superAdmin(), RoleRequest{RoleName: "Auditor", Permissions: PermissionSelection{"rocket_launch"}},
			"permissions", `Invalid permission "Rocket Launch" selected.`},
		{"grant not held", manager, RoleRequest{RoleName: "Auditor", Permissions: PermissionSelection{"role_access", "user_delete"}},
			"permissions", `You are not allowed to grant the "User Delete" permission.`},
		{"name too long", superAdmin(), RoleRequest{RoleName: "A very long role name that goes well past the limit", Permissions: PermissionSelection{"role_access"}},
			"roleName", "The role name may not be greater than 48 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tt.actor, tt.req)
			verr, ok := IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields[tt.field], tt.msg)
		})
	}
	assert.Zero(t, f.tx.commits)
}

func TestRoleUpdate_LockedRoleKeepsName(t *testing.T) {
	f := newRoleFixture()
	admin := f.repo.add(model.RoleAdmin, "role_access")

	resp, err := f.svc.Update(context.Background(), superAdmin(), admin.ID, RoleRequest{
		RoleName:    "Renamed",
		ForPartner:  true,
		Permissions: PermissionSelection{"role_access", "role_update"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleAdmin, resp.Name)
	assert.False(t, resp.ForPartner)
	assert.Equal(t, []string{"role_access", "role_update"}, f.repo.grants[admin.ID])
	assert.Equal(t, []uuid.UUID{admin.ID}, f.cache.invalidated)
	assert.Equal(t, []string{EventRoleUpdated}, f.events.events)
}

func TestRoleUpdate_ReplacesGrants(t *testing.T) {
	f := newRoleFixture()
	role := f.repo.add("Inspector", "role_access", "role_delete")

	resp, err := f.svc.Update(context.Background(), superAdmin(), role.ID, RoleRequest{
		RoleName:    "Field Inspector",
		Permissions: PermissionSelection{"user_access"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Field Inspector", resp.Name)
	assert.Equal(t, []string{"user_access"}, f.repo.grants[role.ID])
}

func TestRoleDelete_Rejections(t *testing.T) {
	f := newRoleFixture()
	locked := f.repo.add(model.RoleGuest, "role_access")
	inUse := f.repo.add("Inspector", "role_access", "user_access")
	f.repo.users[inUse.ID] = 2

	tests := []struct {
		name string
		id   uuid.UUID
		msg  string
	}{
		{"locked role", locked.ID, "You are not allowed to delete this role."},
		{"role with users", inUse.ID, "Please delete all the users of this role first and then try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Delete(context.Background(), superAdmin(), tt.id)
			rej, ok := IsRejected(err)
			require.True(t, ok)
			assert.Equal(t, tt.msg, rej.Reason)
		})
	}

	assert.Equal(t, []string{"role_access", "user_access"}, f.repo.grants[inUse.ID])
	assert.False(t, f.repo.roles[inUse.ID].DeletedAt.Valid)
	assert.Empty(t, f.repo.calls)
}

func TestRoleDelete_ClearsGrantsThenSoftDeletes(t *testing.T) {
	f := newRoleFixture()
	role := f.repo.add("Inspector", "role_access")

	require.NoError(t, f.svc.Delete(context.Background(), superAdmin(), role.ID))

	assert.Equal(t, []string{"clear_permissions", "delete"}, f.repo.calls)
	assert.Empty(t, f.repo.grants[role.ID])
	assert.True(t, f.repo.roles[role.ID].DeletedAt.Valid)
	assert.Equal(t, []string{EventRoleDeleted}, f.events.events)
}

func TestRoleRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("restores a deleted role", func(t *testing.T) {
		f := newRoleFixture()
		role := f.repo.add("Inspector")
		require.NoError(t, f.svc.Delete(ctx, superAdmin(), role.ID))

		resp, err := f.svc.Restore(ctx, superAdmin(), role.ID)
		require.NoError(t, err)
		assert.Equal(t, "Inspector", resp.Name)
		assert.Nil(t, resp.DeletedAt)
		assert.False(t, f.repo.roles[role.ID].DeletedAt.Valid)
	})

	t.Run("not deleted", func(t *testing.T) {
		f := newRoleFixture()
		role := f.repo.add("Inspector")

		_, err := f.svc.Restore(ctx, superAdmin(), role.ID)
		rej, ok := IsRejected(err)
		require.True(t, ok)
		assert.Equal(t, "This role is not deleted.", rej.Reason)
	})

	t.Run("name reused", func(t *testing.T) {
		f := newRoleFixture()
		role := f.repo.add("Inspector")
		require.NoError(t, f.svc.Delete(ctx, superAdmin(), role.ID))
		f.repo.add("Inspector")

		_, err := f.svc.Restore(ctx, superAdmin(), role.ID)
		rej, ok := IsRejected(err)
		require.True(t, ok)
		assert.Equal(t, `Another role named "Inspector" already exists.`, rej.Reason)
	})

	t.Run("missing", func(t *testing.T) {
		f := newRoleFixture()
		_, err := f.svc.Restore(ctx, superAdmin(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRoleList_HidesRestrictedRoles(t *testing.T) {
	f := newRoleFixture()
	for _, name := range []string{model.RoleSuperAdmin, model.RoleAdmin, model.RoleAssociation, model.RoleGuest, model.RoleManager} {
		f.repo.add(name)
	}
	rmg := policy.NewActor(uuid.New(), uuid.New(), model.RoleRMG, []string{"role_access"})

	roles, total, err := f.svc.List(context.Background(), rmg, RoleListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.RoleManager, roles[0].Name)
	assert.False(t, roles[0].Deletable)
}

func TestRoleEdit(t *testing.T) {
	f := newRoleFixture()
	role := f.repo.add("Inspector", "role_access")

	view, err := f.svc.Edit(context.Background(), superAdmin(), role.ID)
	require.NoError(t, err)

	assert.True(t, view.NameEditable)
	assert.True(t, view.Selected["role_access"].Checked)
	assert.True(t, view.Selected[permission.ModuleRole].Checked)
	assert.NotEmpty(t, view.Tree)
}

func TestRoleSeed_GrantsSuperAdminEverything(t *testing.T) {
	f := newRoleFixture()

	require.NoError(t, f.svc.Seed(context.Background()))

	sa, err := f.repo.FindByName(context.Background(), model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, permission.All(), f.repo.grants[sa.ID])
	assert.Len(t, f.repo.roles, len(model.LockedRoles))

	// idempotent
	require.NoError(t, f.svc.Seed(context.Background()))
	assert.Len(t, f.repo.roles, len(model.LockedRoles))
}

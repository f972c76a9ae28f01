package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/policy"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

type userFixture struct {
	svc   *userService
	users *fakeUserRepo
	roles *fakeRoleRepo
	audit *fakeAudit
	tx    *fakeTx
	mail  *fakeMail
}

func newUserFixture(profiles *fakeProfiles) *userFixture {
	f := &userFixture{
		users: newFakeUserRepo(),
		roles: newFakeRoleRepo(),
		audit: &fakeAudit{},
		tx:    &fakeTx{},
		mail:  &fakeMail{},
	}
	if profiles == nil {
		profiles = &fakeProfiles{}
	}
	f.svc = NewUserService(f.users, f.roles, profiles, f.audit, f.tx, f.mail, nil,
		TokenConfig{Secret: testSecret, AccessTTL: time.Hour}, zap.NewNop()).(*userService)
	return f
}

func (f *userFixture) seedUser(t *testing.T, email, password string, role *model.Role) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: "Seeded", Email: &email, Password: string(hash), IsActive: true, RoleID: &role.ID, Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestUserCreate_QueuesMailAfterCommit(t *testing.T) {
	f := newUserFixture(nil)
	role := f.roles.add(model.RoleManager)

	resp, err := f.svc.Create(context.Background(), superAdmin(), UserRequest{
		FullName:     "Nusrat Jahan",
		EmailAddress: ptr("Nusrat@Example.org"),
		Phone:        ptr("+8801812345678"),
		Role:         role.ID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "nusrat@example.org", *resp.Email)
	assert.Equal(t, model.RoleManager, resp.Role)
	assert.Equal(t, 1, f.tx.commits)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "nusrat@example.org", f.mail.sent[0].To)

	stored := f.users.users[resp.ID]
	assert.NotEmpty(t, stored.Password)
	assert.NotContains(t, stored.Password, "Nusrat")
}

func TestUserCreate_MailFailureKeepsAccount(t *testing.T) {
	f := newUserFixture(nil)
	f.mail.err = errors.New("redis: connection refused")
	role := f.roles.add(model.RoleManager)

	resp, err := f.svc.Create(context.Background(), superAdmin(), UserRequest{
		FullName:     "Nusrat Jahan",
		EmailAddress: ptr("nusrat@example.org"),
		Role:         role.ID.String(),
	})
	require.NoError(t, err)
	assert.Contains(t, f.users.users, resp.ID)
	assert.Empty(t, f.mail.sent)
}

func TestUserCreate_Validation(t *testing.T) {
	profiles := &fakeProfiles{taken: map[string]string{"taken@example.org": "stakeholders"}}
	f := newUserFixture(profiles)
	manager := f.roles.add(model.RoleManager)
	admin := f.roles.add(model.RoleAdmin)
	hidden := f.roles.add("Hidden")
	f.roles.roles[hidden.ID].Hideable = true
	actor := policy.NewActor(uuid.New(), uuid.New(), model.RoleManager, []string{"user_create"})

	tests := []struct {
		name  string
		req   UserRequest
		field string
		msg   string
	}{
		{"email collision", UserRequest{FullName: "A B", EmailAddress: ptr("taken@example.org"), Role: manager.ID.String()},
			"emailAddress", "The email address has already been taken in stakeholders."},
		{"restricted role", UserRequest{FullName: "A B", Role: admin.ID.String()},
			"role", "The selected user role is invalid."},
		{"hideable role", UserRequest{FullName: "A B", Role: hidden.ID.String()},
			"role", "The selected user role is invalid."},
		{"unknown role", UserRequest{FullName: "A B", Role: uuid.NewString()},
			"role", "The selected user role is invalid."},
		{"bad phone", UserRequest{FullName: "A B", Phone: ptr("017812345"), Role: manager.ID.String()},
			"phone", "Invalid mobile number provided."},
		{"bad name", UserRequest{FullName: "'Nusrat", Role: manager.ID.String()},
			"fullName", "The full name must start with a letter or number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), actor, tt.req)
			verr, ok := IsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields[tt.field], tt.msg)
		})
	}
	assert.Empty(t, f.mail.sent)
}

func TestUserLoginAndRefresh(t *testing.T) {
	f := newUserFixture(nil)
	role := f.roles.add(model.RoleManager)
	u := f.seedUser(t, "manager@example.org", "Secret#123", role)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginUserRequest{Email: "manager@example.org", Password: "wrong"})
	require.Error(t, err)

	tokens, err := f.svc.Login(ctx, LoginUserRequest{Email: " Manager@Example.org ", Password: "Secret#123"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(tokens.Token, claims, func(*jwt.Token) (interface{}, error) { return testSecret, nil })
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims["sub"])
	assert.Equal(t, role.ID.String(), claims["role_id"])
	assert.Equal(t, model.RoleManager, claims["role"])

	rotated, err := f.svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.Error(t, err, "a rotated refresh token is single use")

	require.NoError(t, f.svc.Logout(ctx, rotated.RefreshToken))
	assert.Empty(t, f.users.tokens)
}

func TestUserLogin_Inactive(t *testing.T) {
	f := newUserFixture(nil)
	role := f.roles.add(model.RoleManager)
	u := f.seedUser(t, "off@example.org", "Secret#123", role)
	f.users.users[u.ID].IsActive = false

	_, err := f.svc.Login(context.Background(), LoginUserRequest{Email: "off@example.org", Password: "Secret#123"})
	require.Error(t, err)
	assert.Empty(t, f.users.tokens)
}

func TestUserChangePassword(t *testing.T) {
	f := newUserFixture(nil)
	role := f.roles.add(model.RoleManager)
	u := f.seedUser(t, "user@example.org", "Secret#123", role)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginUserRequest{Email: "user@example.org", Password: "Secret#123"})
	require.NoError(t, err)
	require.Len(t, f.users.tokens, 1)

	err = f.svc.ChangePassword(ctx, superAdmin(), u, ChangePasswordRequest{Password: "Rajshahi@2026", PasswordConfirmation: "Rajshahi@2025"})
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The password field confirmation does not match."}, verr.Fields["password"])

	require.NoError(t, f.svc.ChangePassword(ctx, superAdmin(), u, ChangePasswordRequest{Password: "Rajshahi@2026", PasswordConfirmation: "Rajshahi@2026"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.users.users[u.ID].Password), []byte("Rajshahi@2026")))
	assert.Empty(t, f.users.tokens)
}

func TestUserDelete_Self(t *testing.T) {
	f := newUserFixture(nil)
	role := f.roles.add(model.RoleAdmin)
	u := f.seedUser(t, "admin@example.org", "Secret#123", role)
	actor := policy.NewActor(u.ID, role.ID, role.Name, []string{"user_delete"})

	err := f.svc.Delete(context.Background(), actor, u)
	_, ok := IsRejected(err)
	require.True(t, ok)
	assert.Contains(t, f.users.users, u.ID)
}

func TestUserList_ExcludesSelfAndRestricted(t *testing.T) {
	f := newUserFixture(nil)
	sa := f.roles.add(model.RoleSuperAdmin)
	admin := f.roles.add(model.RoleAdmin)
	manager := f.roles.add(model.RoleManager)
	f.seedUser(t, "sa@example.org", "x", sa)
	f.seedUser(t, "admin@example.org", "x", admin)
	self := f.seedUser(t, "me@example.org", "x", manager)
	f.seedUser(t, "other@example.org", "x", manager)

	actor := policy.NewActor(self.ID, manager.ID, model.RoleManager, []string{"user_access"})
	users, total, err := f.svc.List(context.Background(), actor, UserListRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "other@example.org", *users[0].Email)
}

func TestUserEnsureSuperAdmin(t *testing.T) {
	f := newUserFixture(nil)
	f.roles.add(model.RoleSuperAdmin)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureSuperAdmin(ctx, "root@example.org", "Root#2026"))
	require.NoError(t, f.svc.EnsureSuperAdmin(ctx, "root@example.org", "Root#2026"))
	assert.Len(t, f.users.users, 1)
}

func TestGeneratePassword(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := generatePassword(generatedPasswordLength)
		require.NoError(t, err)
		assert.Len(t, pw, generatedPasswordLength)
		assert.True(t, newPasswordPolicy(nil, nil).Check(context.Background(), "password", pw).Empty(), pw)
	}
}

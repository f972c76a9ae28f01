package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"backoffice/internal/mailer"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
)

// fakeTx runs fn directly and records whether it committed.
type fakeTx struct {
	commits   int
	rollbacks int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeAudit struct {
	entries []model.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, _ repository.AuditListFilter) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func (f *fakeAudit) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- roles ---

type fakeRoleRepo struct {
	roles  map[uuid.UUID]*model.Role
	grants map[uuid.UUID][]string
	users  map[uuid.UUID]int64
	calls  []string
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:  make(map[uuid.UUID]*model.Role),
		grants: make(map[uuid.UUID][]string),
		users:  make(map[uuid.UUID]int64),
	}
}

func (f *fakeRoleRepo) add(name string, codes ...string) *model.Role {
	r := &model.Role{ID: uuid.New(), Name: name, Deleteable: !model.IsLockedRole(name), CreatedAt: time.Now()}
	f.roles[r.ID] = r
	f.grants[r.ID] = codes
	return r
}

func (f *fakeRoleRepo) Create(_ context.Context, role *model.Role) error {
	f.calls = append(f.calls, "create")
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) Update(_ context.Context, role *model.Role) error {
	f.calls = append(f.calls, "update")
	cp := *role
	f.roles[role.ID] = &cp
	return nil
}

func (f *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.calls = append(f.calls, "delete")
	f.roles[id].DeletedAt.Valid = true
	f.roles[id].DeletedAt.Time = time.Now()
	return nil
}

func (f *fakeRoleRepo) Restore(_ context.Context, id uuid.UUID) error {
	f.calls = append(f.calls, "restore")
	f.roles[id].DeletedAt.Valid = false
	return nil
}

func (f *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok || r.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoleRepo) FindByIDUnscoped(_ context.Context, id uuid.UUID) (*model.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoleRepo) FindByIDWithPermissions(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Name == name && !r.DeletedAt.Valid {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRoleRepo) NameTaken(_ context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	for _, r := range f.roles {
		if r.DeletedAt.Valid || (excludeID != nil && r.ID == *excludeID) {
			continue
		}
		if strings.EqualFold(r.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoleRepo) List(_ context.Context, filter repository.RoleListFilter) ([]model.Role, int64, error) {
	var out []model.Role
	for _, r := range f.roles {
		if r.DeletedAt.Valid || contains(filter.ExcludeNames, r.Name) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (f *fakeRoleRepo) ListAssignable(_ context.Context, excludeNames []string) ([]model.Role, error) {
	var out []model.Role
	for _, r := range f.roles {
		if r.DeletedAt.Valid || r.Hideable || contains(excludeNames, r.Name) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRoleRepo) CountUsers(_ context.Context, roleID uuid.UUID) (int64, error) {
	return f.users[roleID], nil
}

func (f *fakeRoleRepo) PermissionCodes(_ context.Context, roleID uuid.UUID) ([]string, error) {
	return f.grants[roleID], nil
}

func (f *fakeRoleRepo) ReplacePermissions(_ context.Context, roleID uuid.UUID, codes []string) error {
	f.calls = append(f.calls, "replace_permissions")
	f.grants[roleID] = append([]string(nil), codes...)
	return nil
}

func (f *fakeRoleRepo) ClearPermissions(_ context.Context, roleID uuid.UUID) error {
	f.calls = append(f.calls, "clear_permissions")
	f.grants[roleID] = nil
	return nil
}

func (f *fakeRoleRepo) FindOrCreatePermission(_ context.Context, perm *model.Permission) error {
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	return nil
}

type fakeCache struct{ invalidated []uuid.UUID }

func (f *fakeCache) Invalidate(roleID uuid.UUID) { f.invalidated = append(f.invalidated, roleID) }

type fakeEvents struct{ events []string }

func (f *fakeEvents) Publish(event string, _ interface{}) { f.events = append(f.events, event) }

// --- users ---

type fakeUserRepo struct {
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User), tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, filter repository.UserListFilter) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range f.users {
		if filter.ExcludeUserID != nil && u.ID == *filter.ExcludeUserID {
			continue
		}
		if contains(filter.ExcludeRoles, u.RoleName()) {
			continue
		}
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.users[id].Password = hash
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeUserRepo) DeleteRefreshTokensByUser(_ context.Context, userID uuid.UUID) error {
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeUserRepo) DeleteExpiredRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if t.ExpiresAt.Before(before) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

// fakeProfiles reports a collision for any value listed in taken.
type fakeProfiles struct {
	taken map[string]string
}

func (f *fakeProfiles) FindCollision(_ context.Context, _ []repository.ProfileColumn, value string, _ *repository.ProfileRef) (string, bool, error) {
	label, ok := f.taken[value]
	return label, ok, nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMail) Enqueue(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// --- forms ---

type fakeFormRepo struct {
	inputs   map[uuid.UUID]model.FormInput
	forms    map[uuid.UUID]*model.DynamicForm
	elements map[uuid.UUID]*model.DynamicFormInput
	failOn   string
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{
		inputs:   make(map[uuid.UUID]model.FormInput),
		forms:    make(map[uuid.UUID]*model.DynamicForm),
		elements: make(map[uuid.UUID]*model.DynamicFormInput),
	}
}

func (f *fakeFormRepo) addInput(slug, typ string) uuid.UUID {
	in := model.FormInput{ID: uuid.New(), Name: slug, Type: typ, Slug: slug, Component: "C", IsActive: true}
	f.inputs[in.ID] = in
	return in.ID
}

func (f *fakeFormRepo) ListInputs(_ context.Context, _ bool) ([]model.FormInput, error) {
	out := make([]model.FormInput, 0, len(f.inputs))
	for _, in := range f.inputs {
		out = append(out, in)
	}
	return out, nil
}

func (f *fakeFormRepo) FindInputsByIDs(_ context.Context, ids []uuid.UUID) ([]model.FormInput, error) {
	var out []model.FormInput
	for _, id := range ids {
		if in, ok := f.inputs[id]; ok {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeFormRepo) UpsertInput(_ context.Context, input *model.FormInput) error {
	for id, in := range f.inputs {
		if in.Slug == input.Slug {
			input.ID = id
			f.inputs[id] = *input
			return nil
		}
	}
	input.ID = uuid.New()
	f.inputs[input.ID] = *input
	return nil
}

func (f *fakeFormRepo) Create(_ context.Context, form *model.DynamicForm) error {
	form.ID = uuid.New()
	cp := *form
	f.forms[form.ID] = &cp
	return nil
}

func (f *fakeFormRepo) Update(_ context.Context, form *model.DynamicForm) error {
	cp := *form
	cp.Elements = nil
	f.forms[form.ID] = &cp
	return nil
}

func (f *fakeFormRepo) Delete(_ context.Context, id uuid.UUID) error {
	for eid, el := range f.elements {
		if el.DynamicFormID == id {
			delete(f.elements, eid)
		}
	}
	delete(f.forms, id)
	return nil
}

func (f *fakeFormRepo) FindByID(_ context.Context, id uuid.UUID) (*model.DynamicForm, error) {
	form, ok := f.forms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *form
	return &cp, nil
}

func (f *fakeFormRepo) FindByIDWithElements(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error) {
	form, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Elements, _ = f.ListElements(ctx, id)
	return form, nil
}

func (f *fakeFormRepo) SlugExists(_ context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	for _, form := range f.forms {
		if form.Slug == slug && (excludeID == nil || form.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFormRepo) List(_ context.Context, _ string, _ repository.ListOptions) ([]model.DynamicForm, int64, error) {
	var out []model.DynamicForm
	for _, form := range f.forms {
		out = append(out, *form)
	}
	return out, int64(len(out)), nil
}

func (f *fakeFormRepo) ListElements(_ context.Context, formID uuid.UUID) ([]model.DynamicFormInput, error) {
	var out []model.DynamicFormInput
	for _, el := range f.elements {
		if el.DynamicFormID == formID {
			out = append(out, *el)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sort < out[j].Sort })
	return out, nil
}

func (f *fakeFormRepo) CreateElements(_ context.Context, elements []model.DynamicFormInput) error {
	if f.failOn == "create_elements" && len(elements) > 0 {
		return errors.New("insert failed")
	}
	for i := range elements {
		elements[i].ID = uuid.New()
		cp := elements[i]
		f.elements[cp.ID] = &cp
	}
	return nil
}

func (f *fakeFormRepo) UpdateElement(_ context.Context, element *model.DynamicFormInput) error {
	cp := *element
	f.elements[element.ID] = &cp
	return nil
}

func (f *fakeFormRepo) DeleteElements(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(f.elements, id)
	}
	return nil
}

// --- association types ---

type fakeAssociationRepo struct {
	items map[uuid.UUID]*model.AssociationType
}

func newFakeAssociationRepo() *fakeAssociationRepo {
	return &fakeAssociationRepo{items: make(map[uuid.UUID]*model.AssociationType)}
}

func (f *fakeAssociationRepo) Create(_ context.Context, at *model.AssociationType) error {
	at.ID = uuid.New()
	cp := *at
	f.items[at.ID] = &cp
	return nil
}

func (f *fakeAssociationRepo) Update(_ context.Context, at *model.AssociationType) error {
	cp := *at
	f.items[at.ID] = &cp
	return nil
}

func (f *fakeAssociationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func (f *fakeAssociationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AssociationType, error) {
	at, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *at
	return &cp, nil
}

func (f *fakeAssociationRepo) CountExisting(_ context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := f.items[id]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakeAssociationRepo) List(_ context.Context, _ repository.ListOptions) ([]model.AssociationType, int64, error) {
	var out []model.AssociationType
	for _, at := range f.items {
		out = append(out, *at)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssociationRepo) ValueTaken(_ context.Context, column, value string, excludeID *uuid.UUID) (bool, error) {
	for _, at := range f.items {
		if excludeID != nil && at.ID == *excludeID {
			continue
		}
		var v *string
		switch column {
		case "name":
			v = &at.Name
		case "app_key":
			v = at.AppKey
		case "token":
			v = at.Token
		}
		if v != nil && *v == value {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssociationRepo) BulkDelete(_ context.Context, ids []uuid.UUID) (int64, error) {
	for _, id := range ids {
		delete(f.items, id)
	}
	return int64(len(ids)), nil
}

func (f *fakeAssociationRepo) BulkSetActive(_ context.Context, ids []uuid.UUID, active bool) (int64, error) {
	for _, id := range ids {
		f.items[id].IsActive = active
	}
	return int64(len(ids)), nil
}

func (f *fakeAssociationRepo) DeactivateExpired(_ context.Context, today time.Time) ([]model.AssociationType, error) {
	var out []model.AssociationType
	for _, at := range f.items {
		if at.IsActive && at.ValidUntil != nil && at.ValidUntil.Before(today) {
			at.IsActive = false
			out = append(out, *at)
		}
	}
	return out, nil
}

// --- stakeholders ---

type fakeStakeholderRepo struct {
	items map[uuid.UUID]*model.Stakeholder
}

func newFakeStakeholderRepo() *fakeStakeholderRepo {
	return &fakeStakeholderRepo{items: make(map[uuid.UUID]*model.Stakeholder)}
}

func (f *fakeStakeholderRepo) Create(_ context.Context, s *model.Stakeholder) error {
	s.ID = uuid.New()
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeStakeholderRepo) Update(_ context.Context, s *model.Stakeholder) error {
	cp := *s
	f.items[s.ID] = &cp
	return nil
}

func (f *fakeStakeholderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.items, id)
	return nil
}

func (f *fakeStakeholderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Stakeholder, error) {
	s, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStakeholderRepo) List(_ context.Context, filter repository.StakeholderListFilter) ([]model.Stakeholder, int64, error) {
	var out []model.Stakeholder
	for _, s := range f.items {
		if filter.Type != "" && s.Type != filter.Type {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

// fakeBreach flags the passwords it lists.
type fakeBreach struct {
	breached map[string]bool
	err      error
}

func (f *fakeBreach) IsBreached(_ context.Context, password string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.breached[password], nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T { return &v }

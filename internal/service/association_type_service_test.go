package service

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAssociationFixture(now time.Time) (*associationTypeService, *fakeAssociationRepo, *fakeAudit) {
	repo := newFakeAssociationRepo()
	audit := &fakeAudit{}
	svc := NewAssociationTypeService(repo, audit, &fakeTx{}, zap.NewNop()).(*associationTypeService)
	svc.now = func() time.Time { return now }
	return svc, repo, audit
}

func TestAssociationTypeCreate_ValidUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		date    string
		wantErr string
	}{
		{"yesterday", "2026-03-09", "The valid until must be a date after today."},
		{"today", "2026-03-10", "The valid until must be a date after today."},
		{"tomorrow", "2026-03-11", ""},
		{"garbage", "10/03/2026", "The valid until is not a valid date."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newAssociationFixture(now)
			resp, err := svc.Create(context.Background(), superAdmin(), AssociationTypeRequest{
				Name:       "BGMEA",
				ValidUntil: ptr(tt.date),
			})
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.date, *resp.ValidUntil)
				return
			}
			verr, ok := IsValidation(err)
			require.True(t, ok)
			assert.Equal(t, []string{tt.wantErr}, verr.Fields["validUntil"])
		})
	}
}

func TestAssociationTypeCreate_Uniqueness(t *testing.T) {
	svc, _, _ := newAssociationFixture(time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: "BGMEA", AppKey: ptr("bg-key"), Token: ptr("tok")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: "BGMEA", AppKey: ptr("bg-key"), Token: ptr("tok")})
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The name has already been taken."}, verr.Fields["name"])
	assert.Equal(t, []string{"The app key has already been taken."}, verr.Fields["appKey"])
	assert.Equal(t, []string{"The token has already been taken."}, verr.Fields["token"])
}

func TestAssociationTypeCreate_UniquenessIgnoresSurroundingSpace(t *testing.T) {
	svc, repo, _ := newAssociationFixture(time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: "BGMEA", AppKey: ptr("bg-key"), Token: ptr("tok")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: "BKMEA", AppKey: ptr(" bg-key "), Token: ptr("tok ")})
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The app key has already been taken."}, verr.Fields["appKey"])
	assert.Equal(t, []string{"The token has already been taken."}, verr.Fields["token"])
	assert.Len(t, repo.items, 1)
}

func TestAssociationTypeUpdate_BlankAppKeyClears(t *testing.T) {
	svc, repo, _ := newAssociationFixture(time.Now())
	ctx := context.Background()

	created, err := svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: "BGMEA", AppKey: ptr("bg-key")})
	require.NoError(t, err)
	at := repo.items[uuid.MustParse(created.ID)]

	resp, err := svc.Update(ctx, superAdmin(), at, AssociationTypeRequest{Name: "BGMEA", AppKey: ptr("   ")})
	require.NoError(t, err)
	assert.Nil(t, resp.AppKey)
}

func TestAssociationTypeUpdate_AbsentKeysKeepValues(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	svc, repo, _ := newAssociationFixture(now)
	ctx := context.Background()

	created, err := svc.Create(ctx, superAdmin(), AssociationTypeRequest{
		Name:        "BKMEA",
		Description: ptr("Knitwear"),
		AppKey:      ptr("bk-key"),
		ValidUntil:  ptr("2027-01-01"),
		Token:       ptr("secret"),
		IsActive:    ptr(false),
	})
	require.NoError(t, err)

	at, err := svc.Get(ctx, uuid.MustParse(created.ID))
	require.NoError(t, err)

	// re-saving its own values must not trip the uniqueness checks
	updated, err := svc.Update(ctx, superAdmin(), at, AssociationTypeRequest{Name: "BKMEA"})
	require.NoError(t, err)

	assert.Nil(t, updated.Description)
	assert.Equal(t, "bk-key", *updated.AppKey)
	assert.Equal(t, "2027-01-01", *updated.ValidUntil)
	assert.Equal(t, "secret", *updated.Token)
	assert.False(t, updated.IsActive)
	assert.False(t, repo.items[at.ID].IsActive)
}

func TestAssociationTypeBulk(t *testing.T) {
	svc, repo, audit := newAssociationFixture(time.Now())
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		resp, err := svc.Create(ctx, superAdmin(), AssociationTypeRequest{Name: name})
		require.NoError(t, err)
		ids = append(ids, resp.ID)
	}

	t.Run("status", func(t *testing.T) {
		n, err := svc.BulkStatus(ctx, superAdmin(), BulkStatusRequest{IDs: ids[:2], IsActive: ptr(false)})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
		assert.False(t, repo.items[uuid.MustParse(ids[0])].IsActive)
		assert.True(t, repo.items[uuid.MustParse(ids[2])].IsActive)
	})

	t.Run("empty ids", func(t *testing.T) {
		_, err := svc.BulkDelete(ctx, superAdmin(), BulkIDsRequest{})
		verr, ok := IsValidation(err)
		require.True(t, ok)
		assert.True(t, verr.Has("ids"))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.BulkDelete(ctx, superAdmin(), BulkIDsRequest{IDs: []string{ids[0], uuid.NewString()}})
		verr, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, []string{"The selected ids is invalid."}, verr.Fields["ids"])
		assert.Len(t, repo.items, 3)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.BulkDelete(ctx, superAdmin(), BulkIDsRequest{IDs: []string{"not-a-uuid"}})
		verr, ok := IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, []string{"The selected ids is invalid."}, verr.Fields["ids.0"])
	})

	t.Run("delete", func(t *testing.T) {
		n, err := svc.BulkDelete(ctx, superAdmin(), BulkIDsRequest{IDs: ids})
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		assert.Empty(t, repo.items)
	})

	assert.Contains(t, audit.actions(), model.ActionBulkDeleteAssociationType)
	assert.Contains(t, audit.actions(), model.ActionBulkStatusAssociationType)
}

func TestAssociationTypeExpireSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	svc, repo, audit := newAssociationFixture(now)

	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	expired := &model.AssociationType{ID: uuid.New(), Name: "Old", ValidUntil: &yesterday, IsActive: true}
	current := &model.AssociationType{ID: uuid.New(), Name: "Current", ValidUntil: &today, IsActive: true}
	open := &model.AssociationType{ID: uuid.New(), Name: "Open", IsActive: true}
	for _, at := range []*model.AssociationType{expired, current, open} {
		repo.items[at.ID] = at
	}

	n, err := svc.ExpireSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.False(t, repo.items[expired.ID].IsActive)
	assert.True(t, repo.items[current.ID].IsActive)
	assert.True(t, repo.items[open.ID].IsActive)
	require.Len(t, audit.entries, 1)
	assert.Nil(t, audit.entries[0].UserID)
	assert.Equal(t, model.ActionExpireAssociationType, audit.entries[0].Action)
}

package repository

import (
	"context"
	"time"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssociationTypeRepository interface {
	Create(ctx context.Context, at *model.AssociationType) error
	Update(ctx context.Context, at *model.AssociationType) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AssociationType, error)
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, opts ListOptions) ([]model.AssociationType, int64, error)
	// ValueTaken checks every row, soft-deleted ones included.
	ValueTaken(ctx context.Context, column, value string, excludeID *uuid.UUID) (bool, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
	BulkSetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error)
	DeactivateExpired(ctx context.Context, today time.Time) ([]model.AssociationType, error)
}

type associationTypeRepository struct {
	db *gorm.DB
}

func NewAssociationTypeRepository(db *gorm.DB) AssociationTypeRepository {
	return &associationTypeRepository{db: db}
}

var associationTypeUniqueColumns = map[string]bool{"name": true, "app_key": true, "token": true}

func (r *associationTypeRepository) Create(ctx context.Context, at *model.AssociationType) error {
	return GetDB(ctx, r.db).Create(at).Error
}

func (r *associationTypeRepository) Update(ctx context.Context, at *model.AssociationType) error {
	return GetDB(ctx, r.db).Save(at).Error
}

func (r *associationTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.AssociationType{}).Error
}

func (r *associationTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AssociationType, error) {
	var at model.AssociationType
	if err := GetDB(ctx, r.db).First(&at, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &at, nil
}

func (r *associationTypeRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.AssociationType{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *associationTypeRepository) List(ctx context.Context, opts ListOptions) ([]model.AssociationType, int64, error) {
	var items []model.AssociationType
	var total int64

	query := GetDB(ctx, r.db).Model(&model.AssociationType{})
	if opts.Search != "" {
		query = query.Where("name ILIKE ?", likePattern(opts.Search))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderClause(opts, "name", "valid_until", "is_active", "created_at")
	if err := paginate(query.Order(order), opts).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *associationTypeRepository) ValueTaken(ctx context.Context, column, value string, excludeID *uuid.UUID) (bool, error) {
	if !associationTypeUniqueColumns[column] {
		return false, nil
	}
	var count int64
	q := GetDB(ctx, r.db).Unscoped().Model(&model.AssociationType{}).Where(column+" = ?", value)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *associationTypeRepository) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.AssociationType{})
	return res.RowsAffected, res.Error
}

func (r *associationTypeRepository) BulkSetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.AssociationType{}).Where("id IN ?", ids).Update("is_active", active)
	return res.RowsAffected, res.Error
}

// DeactivateExpired switches off active rows whose valid_until is before today
// and returns them.
func (r *associationTypeRepository) DeactivateExpired(ctx context.Context, today time.Time) ([]model.AssociationType, error) {
	db := GetDB(ctx, r.db)
	var expired []model.AssociationType
	if err := db.Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, today).
		Find(&expired).Error; err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, at := range expired {
		ids = append(ids, at.ID)
	}
	if err := db.Model(&model.AssociationType{}).Where("id IN ?", ids).Update("is_active", false).Error; err != nil {
		return nil, err
	}
	return expired, nil
}

package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StakeholderListFilter struct {
	ListOptions
	Type string
}

type StakeholderRepository interface {
	Create(ctx context.Context, s *model.Stakeholder) error
	Update(ctx context.Context, s *model.Stakeholder) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Stakeholder, error)
	List(ctx context.Context, filter StakeholderListFilter) ([]model.Stakeholder, int64, error)
}

type stakeholderRepository struct {
	db *gorm.DB
}

func NewStakeholderRepository(db *gorm.DB) StakeholderRepository {
	return &stakeholderRepository{db: db}
}

func (r *stakeholderRepository) Create(ctx context.Context, s *model.Stakeholder) error {
	return GetDB(ctx, r.db).Create(s).Error
}

func (r *stakeholderRepository) Update(ctx context.Context, s *model.Stakeholder) error {
	return GetDB(ctx, r.db).Save(s).Error
}

func (r *stakeholderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Stakeholder{}).Error
}

func (r *stakeholderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Stakeholder, error) {
	var s model.Stakeholder
	if err := GetDB(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// List returns every match when filter.Limit is zero.
func (r *stakeholderRepository) List(ctx context.Context, filter StakeholderListFilter) ([]model.Stakeholder, int64, error) {
	var items []model.Stakeholder
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Stakeholder{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("name ILIKE ? OR bn_name ILIKE ? OR mobile ILIKE ? OR email ILIKE ?", p, p, p, p)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderClause(filter.ListOptions, "name", "type", "email", "mobile", "is_active", "created_at")
	if err := paginate(query.Order(order), filter.ListOptions).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

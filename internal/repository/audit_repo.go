package repository

import (
	"context"

	"backoffice/internal/model"

	"gorm.io/gorm"
)

type AuditListFilter struct {
	ListOptions
	Action string
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditListFilter) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	query := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("entity_name ILIKE ? OR entity_id ILIKE ?", p, p)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := paginate(query.Preload("User").Order("created_at desc"), filter.ListOptions).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

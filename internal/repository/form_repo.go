package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FormRepository interface {
	ListInputs(ctx context.Context, activeOnly bool) ([]model.FormInput, error)
	FindInputsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.FormInput, error)
	UpsertInput(ctx context.Context, input *model.FormInput) error

	Create(ctx context.Context, form *model.DynamicForm) error
	Update(ctx context.Context, form *model.DynamicForm) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error)
	FindByIDWithElements(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error)
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, formType string, opts ListOptions) ([]model.DynamicForm, int64, error)

	ListElements(ctx context.Context, formID uuid.UUID) ([]model.DynamicFormInput, error)
	CreateElements(ctx context.Context, elements []model.DynamicFormInput) error
	UpdateElement(ctx context.Context, element *model.DynamicFormInput) error
	DeleteElements(ctx context.Context, ids []uuid.UUID) error
}

type formRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

func (r *formRepository) ListInputs(ctx context.Context, activeOnly bool) ([]model.FormInput, error) {
	var inputs []model.FormInput
	q := GetDB(ctx, r.db)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("created_at asc").Find(&inputs).Error; err != nil {
		return nil, err
	}
	return inputs, nil
}

func (r *formRepository) FindInputsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.FormInput, error) {
	var inputs []model.FormInput
	if len(ids) == 0 {
		return inputs, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&inputs).Error; err != nil {
		return nil, err
	}
	return inputs, nil
}

func (r *formRepository) UpsertInput(ctx context.Context, input *model.FormInput) error {
	return GetDB(ctx, r.db).
		Where("slug = ?", input.Slug).
		Assign(model.FormInput{Name: input.Name, Type: input.Type, Icon: input.Icon, Component: input.Component}).
		FirstOrCreate(input).Error
}

func (r *formRepository) Create(ctx context.Context, form *model.DynamicForm) error {
	return GetDB(ctx, r.db).Omit("Elements").Create(form).Error
}

func (r *formRepository) Update(ctx context.Context, form *model.DynamicForm) error {
	return GetDB(ctx, r.db).Omit("Elements").Save(form).Error
}

func (r *formRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("dynamic_form_id = ?", id).Delete(&model.DynamicFormInput{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.DynamicForm{}).Error
}

func (r *formRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error) {
	var form model.DynamicForm
	if err := GetDB(ctx, r.db).First(&form, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}

func (r *formRepository) FindByIDWithElements(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error) {
	var form model.DynamicForm
	err := GetDB(ctx, r.db).
		Preload("Elements", func(db *gorm.DB) *gorm.DB { return db.Order("sort asc") }).
		Preload("Elements.FormInput").
		First(&form, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &form, nil
}

func (r *formRepository) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	q := GetDB(ctx, r.db).Model(&model.DynamicForm{}).Where("slug = ?", slug)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *formRepository) List(ctx context.Context, formType string, opts ListOptions) ([]model.DynamicForm, int64, error) {
	var forms []model.DynamicForm
	var total int64

	query := GetDB(ctx, r.db).Model(&model.DynamicForm{})
	if formType != "" {
		query = query.Where("type = ?", formType)
	}
	if opts.Search != "" {
		query = query.Where("name ILIKE ?", likePattern(opts.Search))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := orderClause(opts, "name", "type", "is_active", "created_at")
	if err := paginate(query.Order(order), opts).Find(&forms).Error; err != nil {
		return nil, 0, err
	}
	return forms, total, nil
}

func (r *formRepository) ListElements(ctx context.Context, formID uuid.UUID) ([]model.DynamicFormInput, error) {
	var elements []model.DynamicFormInput
	if err := GetDB(ctx, r.db).Where("dynamic_form_id = ?", formID).Order("sort asc").Find(&elements).Error; err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *formRepository) CreateElements(ctx context.Context, elements []model.DynamicFormInput) error {
	if len(elements) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit("FormInput").Create(&elements).Error
}

func (r *formRepository) UpdateElement(ctx context.Context, element *model.DynamicFormInput) error {
	return GetDB(ctx, r.db).Omit("FormInput").Save(element).Error
}

func (r *formRepository) DeleteElements(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Where("id IN ?", ids).Delete(&model.DynamicFormInput{}).Error
}

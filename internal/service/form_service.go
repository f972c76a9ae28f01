package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/permission"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// maxSlugAttempts bounds the -1, -2, ... suffix search.
const maxSlugAttempts = 1000

var optionTypes = map[string]bool{
	model.InputTypeRadio:       true,
	model.InputTypeSelect:      true,
	model.InputTypeMultiSelect: true,
	model.InputTypeCheckbox:    true,
}

// DefaultFormInputs are the input types seeded on first start.
var DefaultFormInputs = []model.FormInput{
	{Name: "Text", Type: "text", Slug: "text", Component: "TextInput"},
	{Name: "Email", Type: "email", Slug: "email", Component: "EmailInput"},
	{Name: "Number", Type: "number", Slug: "number", Component: "NumberInput"},
	{Name: "Select", Type: model.InputTypeSelect, Slug: "select", Component: "SelectInput"},
	{Name: "Multi Select", Type: model.InputTypeMultiSelect, Slug: "multi-select", Component: "MultiSelectInput"},
	{Name: "Radio", Type: model.InputTypeRadio, Slug: "radio", Component: "RadioInput"},
	{Name: "Checkbox", Type: model.InputTypeCheckbox, Slug: "checkbox", Component: "CheckboxInput"},
	{Name: "Date", Type: "date", Slug: "date", Component: "DateInput"},
}

type FormElementRequest struct {
	InputID     string          `json:"input_id" validate:"required,uuid"`
	Label       string          `json:"label" validate:"required,max=255"`
	Type        string          `json:"type" validate:"required,max=255"`
	Placeholder *string         `json:"placeholder" validate:"omitempty,max=255"`
	Options     json.RawMessage `json:"options"`
	Required    bool            `json:"required"`
	HasAction   bool            `json:"has_action"`
}

type FormRequest struct {
	Type     string               `json:"type" validate:"required,oneof=Assessment Monitoring"`
	Name     string               `json:"name" validate:"required,max=255"`
	IsActive *bool                `json:"isActive"`
	Elements []FormElementRequest `json:"elements" validate:"dive"`
}

type FormListRequest struct {
	Search    string
	Type      string
	OrderBy   string
	Direction string
	Page      int
	Limit     int
}

type FormElementResponse struct {
	ID          string          `json:"id"`
	InputID     string          `json:"input_id"`
	InputName   string          `json:"input_name,omitempty"`
	Component   string          `json:"component,omitempty"`
	Sort        int             `json:"sort"`
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Placeholder *string         `json:"placeholder"`
	Options     json.RawMessage `json:"options"`
	Required    bool            `json:"required"`
	HasAction   bool            `json:"has_action"`
}

type FormResponse struct {
	ID        string                `json:"id"`
	Type      string                `json:"type"`
	Name      string                `json:"name"`
	Slug      string                `json:"slug"`
	IsActive  bool                  `json:"is_active"`
	Elements  []FormElementResponse `json:"elements,omitempty"`
	CreatedAt string                `json:"created_at"`
	UpdatedAt string                `json:"updated_at"`
}

type FormService interface {
	List(ctx context.Context, req FormListRequest) ([]FormResponse, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*FormResponse, error)
	Find(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error)
	Create(ctx context.Context, actor *policy.Actor, req FormRequest) (*FormResponse, error)
	Update(ctx context.Context, actor *policy.Actor, form *model.DynamicForm, req FormRequest) (*FormResponse, error)
	Delete(ctx context.Context, actor *policy.Actor, form *model.DynamicForm) error
	Inputs(ctx context.Context) ([]model.FormInput, error)
	SeedInputs(ctx context.Context) error
}

type formService struct {
	repo      repository.FormRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	logger    *zap.Logger
}

func NewFormService(
	repo repository.FormRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) FormService {
	return &formService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// optionsEmpty treats absent, null, "", [] and {} as no options.
func optionsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	return false
}

// validate runs field rules first, then the cross-field rules, and returns
// the parsed input ids in payload order.
func (s *formService) validate(ctx context.Context, req *FormRequest) ([]uuid.UUID, error) {
	req.Name = strings.TrimSpace(req.Name)
	verr := validateStruct(req)

	ids := make([]uuid.UUID, len(req.Elements))
	seen := make(map[uuid.UUID]int, len(req.Elements))
	var lookup []uuid.UUID
	for i, el := range req.Elements {
		key := fmt.Sprintf("elements.%d.input_id", i)
		if verr.Has(key) {
			continue
		}
		id, _ := uuid.Parse(el.InputID)
		ids[i] = id
		if first, dup := seen[id]; dup {
			verr.Add(key, fmt.Sprintf("The input type is already used by element %d.", first+1))
			continue
		}
		seen[id] = i
		lookup = append(lookup, id)
	}

	if len(lookup) > 0 {
		inputs, err := s.repo.FindInputsByIDs(ctx, lookup)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch input types: %w", err)
		}
		known := make(map[uuid.UUID]bool, len(inputs))
		for _, in := range inputs {
			known[in.ID] = true
		}
		for _, id := range lookup {
			if !known[id] {
				verr.Add(fmt.Sprintf("elements.%d.input_id", seen[id]), "The selected input id is invalid.")
			}
		}
	}

	if !verr.Empty() {
		return nil, verr
	}

	for i, el := range req.Elements {
		if optionTypes[el.Type] && optionsEmpty(el.Options) {
			verr.Add(fmt.Sprintf("elements.%d.options", i), fmt.Sprintf("The options field is required when type is %s.", el.Type))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return ids, nil
}

// uniqueSlug derives a slug from name, appending -1, -2, ... until unused.
func (s *formService) uniqueSlug(ctx context.Context, name string, excludeID *uuid.UUID) (string, error) {
	base := permission.Slug(name)
	if base == "" {
		base = "form"
	}
	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("failed to check form slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

func elementFromRequest(formID, inputID uuid.UUID, sort int, el FormElementRequest) model.DynamicFormInput {
	row := model.DynamicFormInput{DynamicFormID: formID, FormInputID: inputID}
	applyElement(&row, sort, el)
	return row
}

func applyElement(row *model.DynamicFormInput, sort int, el FormElementRequest) {
	row.Sort = sort
	row.Label = strings.TrimSpace(el.Label)
	row.Type = el.Type
	row.Placeholder = el.Placeholder
	row.Required = el.Required
	row.HasAction = el.HasAction
	row.Options = nil
	if !optionsEmpty(el.Options) {
		row.Options = datatypes.JSON(bytes.TrimSpace(el.Options))
	}
}

func (s *formService) Create(ctx context.Context, actor *policy.Actor, req FormRequest) (*FormResponse, error) {
	inputIDs, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, req.Name, nil)
	if err != nil {
		return nil, err
	}
	form := &model.DynamicForm{
		Type:     req.Type,
		Name:     req.Name,
		Slug:     slug,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, form); err != nil {
			return fmt.Errorf("failed to create form: %w", err)
		}
		elements := make([]model.DynamicFormInput, 0, len(req.Elements))
		for i, el := range req.Elements {
			elements = append(elements, elementFromRequest(form.ID, inputIDs[i], i, el))
		}
		if err := s.repo.CreateElements(txCtx, elements); err != nil {
			return fmt.Errorf("failed to create form elements: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionCreateForm, form.ID.String(), form.Name, map[string]interface{}{
			"type":     form.Type,
			"elements": len(elements),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Form created", zap.String("form_id", form.ID.String()), zap.Int("elements", len(req.Elements)))
	return s.Get(ctx, form.ID)
}

func (s *formService) Update(ctx context.Context, actor *policy.Actor, form *model.DynamicForm, req FormRequest) (*FormResponse, error) {
	inputIDs, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	if req.Name != form.Name {
		slug, err := s.uniqueSlug(ctx, req.Name, &form.ID)
		if err != nil {
			return nil, err
		}
		form.Slug = slug
	}
	form.Name = req.Name
	if req.IsActive != nil {
		form.IsActive = *req.IsActive
	}

	var created, updated, removed int
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, form); err != nil {
			return fmt.Errorf("failed to update form: %w", err)
		}

		existing, err := s.repo.ListElements(txCtx, form.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch form elements: %w", err)
		}
		byInput := make(map[uuid.UUID]*model.DynamicFormInput, len(existing))
		for i := range existing {
			byInput[existing[i].FormInputID] = &existing[i]
		}

		var inserts []model.DynamicFormInput
		kept := make(map[uuid.UUID]bool, len(req.Elements))
		for i, el := range req.Elements {
			inputID := inputIDs[i]
			kept[inputID] = true
			if row, ok := byInput[inputID]; ok {
				applyElement(row, i, el)
				if err := s.repo.UpdateElement(txCtx, row); err != nil {
					return fmt.Errorf("failed to update form element: %w", err)
				}
				updated++
				continue
			}
			inserts = append(inserts, elementFromRequest(form.ID, inputID, i, el))
		}
		if err := s.repo.CreateElements(txCtx, inserts); err != nil {
			return fmt.Errorf("failed to create form elements: %w", err)
		}
		created = len(inserts)

		var stale []uuid.UUID
		for _, row := range existing {
			if !kept[row.FormInputID] {
				stale = append(stale, row.ID)
			}
		}
		if err := s.repo.DeleteElements(txCtx, stale); err != nil {
			return fmt.Errorf("failed to delete form elements: %w", err)
		}
		removed = len(stale)

		return logAudit(txCtx, s.auditRepo, actor, model.ActionUpdateForm, form.ID.String(), form.Name, map[string]interface{}{
			"created": created,
			"updated": updated,
			"removed": removed,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Form updated",
		zap.String("form_id", form.ID.String()),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("removed", removed),
	)
	return s.Get(ctx, form.ID)
}

func (s *formService) Delete(ctx context.Context, actor *policy.Actor, form *model.DynamicForm) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, form.ID); err != nil {
			return fmt.Errorf("failed to delete form: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionDeleteForm, form.ID.String(), form.Name, nil)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Form deleted", zap.String("form_id", form.ID.String()))
	return nil
}

func (s *formService) Find(ctx context.Context, id uuid.UUID) (*model.DynamicForm, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch form: %w", err)
	}
	return form, nil
}

func (s *formService) Get(ctx context.Context, id uuid.UUID) (*FormResponse, error) {
	form, err := s.repo.FindByIDWithElements(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch form: %w", err)
	}
	resp := toFormResponse(form)
	resp.Elements = make([]FormElementResponse, 0, len(form.Elements))
	for _, el := range form.Elements {
		resp.Elements = append(resp.Elements, toFormElementResponse(el))
	}
	return &resp, nil
}

func (s *formService) List(ctx context.Context, req FormListRequest) ([]FormResponse, int64, error) {
	forms, total, err := s.repo.List(ctx, req.Type, repository.ListOptions{
		Search:    req.Search,
		OrderBy:   req.OrderBy,
		Direction: req.Direction,
		Offset:    (req.Page - 1) * req.Limit,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch forms: %w", err)
	}

	res := make([]FormResponse, 0, len(forms))
	for i := range forms {
		res = append(res, toFormResponse(&forms[i]))
	}
	return res, total, nil
}

func (s *formService) Inputs(ctx context.Context) ([]model.FormInput, error) {
	inputs, err := s.repo.ListInputs(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch input types: %w", err)
	}
	return inputs, nil
}

// SeedInputs upserts the default input types by slug.
func (s *formService) SeedInputs(ctx context.Context) error {
	for _, def := range DefaultFormInputs {
		input := def
		input.IsActive = true
		if err := s.repo.UpsertInput(ctx, &input); err != nil {
			return fmt.Errorf("failed to seed input type '%s': %w", def.Slug, err)
		}
	}
	return nil
}

func toFormResponse(f *model.DynamicForm) FormResponse {
	return FormResponse{
		ID:        f.ID.String(),
		Type:      f.Type,
		Name:      f.Name,
		Slug:      f.Slug,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}

func toFormElementResponse(el model.DynamicFormInput) FormElementResponse {
	resp := FormElementResponse{
		ID:          el.ID.String(),
		InputID:     el.FormInputID.String(),
		Sort:        el.Sort,
		Label:       el.Label,
		Type:        el.Type,
		Placeholder: el.Placeholder,
		Required:    el.Required,
		HasAction:   el.HasAction,
	}
	if len(el.Options) > 0 {
		resp.Options = json.RawMessage(el.Options)
	} else {
		resp.Options = json.RawMessage("null")
	}
	if el.FormInput != nil {
		resp.InputName = el.FormInput.Name
		resp.Component = el.FormInput.Component
	}
	return resp
}


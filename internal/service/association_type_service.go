package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AssociationTypeRequest is shared by create and update. On update a nil
// AppKey, ValidUntil, Token or IsActive keeps the stored value.
type AssociationTypeRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	AppKey      *string `json:"appKey" validate:"omitempty,max=255"`
	ValidUntil  *string `json:"validUntil"`
	Token       *string `json:"token"`
	IsActive    *bool   `json:"isActive"`
}

type BulkIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

type BulkStatusRequest struct {
	IDs      []string `json:"ids" validate:"required,min=1,dive,uuid"`
	IsActive *bool    `json:"isActive" validate:"required"`
}

type AssociationTypeListRequest struct {
	Search    string
	OrderBy   string
	Direction string
	Page      int
	Limit     int
}

type AssociationTypeResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	AppKey      *string `json:"appKey"`
	ValidUntil  *string `json:"validUntil"`
	Token       *string `json:"token"`
	IsActive    bool    `json:"isActive"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type AssociationTypeService interface {
	List(ctx context.Context, req AssociationTypeListRequest) ([]AssociationTypeResponse, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.AssociationType, error)
	Create(ctx context.Context, actor *policy.Actor, req AssociationTypeRequest) (*AssociationTypeResponse, error)
	Update(ctx context.Context, actor *policy.Actor, at *model.AssociationType, req AssociationTypeRequest) (*AssociationTypeResponse, error)
	Delete(ctx context.Context, actor *policy.Actor, at *model.AssociationType) error
	BulkDelete(ctx context.Context, actor *policy.Actor, req BulkIDsRequest) (int64, error)
	BulkStatus(ctx context.Context, actor *policy.Actor, req BulkStatusRequest) (int64, error)
	ExpireSweep(ctx context.Context) (int, error)
}

type associationTypeService struct {
	repo      repository.AssociationTypeRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	logger    *zap.Logger
	now       func() time.Time
}

func NewAssociationTypeService(
	repo repository.AssociationTypeRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) AssociationTypeService {
	return &associationTypeService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

func ToAssociationTypeResponse(at *model.AssociationType) *AssociationTypeResponse {
	resp := &AssociationTypeResponse{
		ID:          at.ID.String(),
		Name:        at.Name,
		Description: at.Description,
		AppKey:      at.AppKey,
		Token:       at.Token,
		IsActive:    at.IsActive,
		CreatedAt:   at.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   at.UpdatedAt.Format(time.RFC3339),
	}
	if at.ValidUntil != nil {
		d := at.ValidUntil.Format(dateLayout)
		resp.ValidUntil = &d
	}
	return resp
}

func (s *associationTypeService) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// validate checks req and returns the parsed valid-until date.
func (s *associationTypeService) validate(ctx context.Context, req *AssociationTypeRequest, excludeID *uuid.UUID) (*time.Time, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.AppKey = trimPtr(req.AppKey)
	req.Token = trimPtr(req.Token)
	verr := validateStruct(req)

	var validUntil *time.Time
	if req.ValidUntil != nil && strings.TrimSpace(*req.ValidUntil) != "" {
		d, err := time.Parse(dateLayout, strings.TrimSpace(*req.ValidUntil))
		switch {
		case err != nil:
			verr.Add("validUntil", "The valid until is not a valid date.")
		case !d.After(s.today()):
			verr.Add("validUntil", "The valid until must be a date after today.")
		default:
			validUntil = &d
		}
	}

	unique := []struct {
		field, column, attr string
		value               *string
	}{
		{"name", "name", "name", &req.Name},
		{"appKey", "app_key", "app key", req.AppKey},
		{"token", "token", "token", req.Token},
	}
	for _, u := range unique {
		if u.value == nil || *u.value == "" || verr.Has(u.field) {
			continue
		}
		taken, err := s.repo.ValueTaken(ctx, u.column, *u.value, excludeID)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s uniqueness: %w", u.attr, err)
		}
		if taken {
			verr.Add(u.field, fmt.Sprintf("The %s has already been taken.", u.attr))
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return validUntil, nil
}

// trimPtr trims a present value, keeping "" so an update can still clear it.
func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *associationTypeService) List(ctx context.Context, req AssociationTypeListRequest) ([]AssociationTypeResponse, int64, error) {
	items, total, err := s.repo.List(ctx, repository.ListOptions{
		Search:    req.Search,
		OrderBy:   req.OrderBy,
		Direction: req.Direction,
		Offset:    (req.Page - 1) * req.Limit,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch association types: %w", err)
	}

	res := make([]AssociationTypeResponse, 0, len(items))
	for i := range items {
		res = append(res, *ToAssociationTypeResponse(&items[i]))
	}
	return res, total, nil
}

func (s *associationTypeService) Get(ctx context.Context, id uuid.UUID) (*model.AssociationType, error) {
	at, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch association type: %w", err)
	}
	return at, nil
}

func (s *associationTypeService) Create(ctx context.Context, actor *policy.Actor, req AssociationTypeRequest) (*AssociationTypeResponse, error) {
	validUntil, err := s.validate(ctx, &req, nil)
	if err != nil {
		return nil, err
	}

	at := &model.AssociationType{
		Name:        req.Name,
		Description: req.Description,
		AppKey:      blankToNil(req.AppKey),
		ValidUntil:  validUntil,
		Token:       blankToNil(req.Token),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, at); err != nil {
			return fmt.Errorf("failed to create association type: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionCreateAssociationType, at.ID.String(), at.Name, nil)
	})
	if err != nil {
		return nil, err
	}
	return ToAssociationTypeResponse(at), nil
}

func (s *associationTypeService) Update(ctx context.Context, actor *policy.Actor, at *model.AssociationType, req AssociationTypeRequest) (*AssociationTypeResponse, error) {
	validUntil, err := s.validate(ctx, &req, &at.ID)
	if err != nil {
		return nil, err
	}

	at.Name = req.Name
	at.Description = req.Description
	if req.AppKey != nil {
		at.AppKey = blankToNil(req.AppKey)
	}
	if req.ValidUntil != nil {
		at.ValidUntil = validUntil
	}
	if req.Token != nil {
		at.Token = blankToNil(req.Token)
	}
	if req.IsActive != nil {
		at.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, at); err != nil {
			return fmt.Errorf("failed to update association type: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionUpdateAssociationType, at.ID.String(), at.Name, map[string]interface{}{
			"is_active": at.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return ToAssociationTypeResponse(at), nil
}

func (s *associationTypeService) Delete(ctx context.Context, actor *policy.Actor, at *model.AssociationType) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, at.ID); err != nil {
			return fmt.Errorf("failed to delete association type: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionDeleteAssociationType, at.ID.String(), at.Name, nil)
	})
}

// parseIDs validates a bulk payload and checks every id exists.
func (s *associationTypeService) parseIDs(ctx context.Context, raw []string, verr *ValidationError) ([]uuid.UUID, error) {
	if !verr.Empty() {
		return nil, verr
	}

	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, r := range raw {
		id := uuid.MustParse(r)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	found, err := s.repo.CountExisting(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check association types: %w", err)
	}
	if found != int64(len(ids)) {
		return nil, fieldError("ids", "The selected ids is invalid.")
	}
	return ids, nil
}

func (s *associationTypeService) BulkDelete(ctx context.Context, actor *policy.Actor, req BulkIDsRequest) (int64, error) {
	ids, err := s.parseIDs(ctx, req.IDs, validateStruct(req))
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.BulkDelete(txCtx, ids)
		if err != nil {
			return fmt.Errorf("failed to delete association types: %w", err)
		}
		affected = n
		return logAudit(txCtx, s.auditRepo, actor, model.ActionBulkDeleteAssociationType, "", "", map[string]interface{}{
			"ids":   req.IDs,
			"count": n,
		})
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *associationTypeService) BulkStatus(ctx context.Context, actor *policy.Actor, req BulkStatusRequest) (int64, error) {
	ids, err := s.parseIDs(ctx, req.IDs, validateStruct(req))
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.BulkSetActive(txCtx, ids, *req.IsActive)
		if err != nil {
			return fmt.Errorf("failed to update association type status: %w", err)
		}
		affected = n
		return logAudit(txCtx, s.auditRepo, actor, model.ActionBulkStatusAssociationType, "", "", map[string]interface{}{
			"ids":       req.IDs,
			"is_active": *req.IsActive,
			"count":     n,
		})
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// ExpireSweep deactivates association types whose validity ended before today.
func (s *associationTypeService) ExpireSweep(ctx context.Context) (int, error) {
	var expired []model.AssociationType
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.repo.DeactivateExpired(txCtx, s.today())
		if err != nil {
			return fmt.Errorf("failed to deactivate expired association types: %w", err)
		}
		expired = rows
		for _, at := range rows {
			if err := logAudit(txCtx, s.auditRepo, nil, model.ActionExpireAssociationType, at.ID.String(), at.Name, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(expired) > 0 {
		s.logger.Info("Association types expired", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/export"
	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type StakeholderRequest struct {
	Type          string  `json:"type" validate:"required,oneof=Government Autonomous NGO 'Private Sector' Other"`
	Name          string  `json:"name" validate:"required,max=255"`
	BnName        *string `json:"bnName" validate:"omitempty,max=255"`
	Designation   *string `json:"designation" validate:"omitempty,max=255"`
	BnDesignation *string `json:"bnDesignation" validate:"omitempty,max=255"`
	MobileNo      string  `json:"mobileNo" validate:"required,bdmobile"`
	Email         string  `json:"email" validate:"required,max=250,profileemail"`
	Password      string  `json:"password"`
	IsActive      *bool   `json:"isActive"`
}

type StakeholderListRequest struct {
	Search    string
	Type      string
	OrderBy   string
	Direction string
	Page      int
	Limit     int
}

type StakeholderResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Name          string  `json:"name"`
	BnName        *string `json:"bnName"`
	Designation   *string `json:"designation"`
	BnDesignation *string `json:"bnDesignation"`
	MobileNo      string  `json:"mobileNo"`
	Email         string  `json:"email"`
	IsActive      bool    `json:"isActive"`
	CreatedAt     string  `json:"createdAt"`
}

type StakeholderService interface {
	List(ctx context.Context, req StakeholderListRequest) ([]StakeholderResponse, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Stakeholder, error)
	Create(ctx context.Context, actor *policy.Actor, req StakeholderRequest) (*StakeholderResponse, error)
	Update(ctx context.Context, actor *policy.Actor, sh *model.Stakeholder, req StakeholderRequest) (*StakeholderResponse, error)
	Delete(ctx context.Context, actor *policy.Actor, sh *model.Stakeholder) error
	Export(ctx context.Context, req StakeholderListRequest) ([]byte, error)
}

type stakeholderService struct {
	repo        repository.StakeholderRepository
	profileRepo repository.ProfileRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	passwords   passwordPolicy
	logger      *zap.Logger
}

func NewStakeholderService(
	repo repository.StakeholderRepository,
	profileRepo repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	breach BreachChecker,
	logger *zap.Logger,
) StakeholderService {
	return &stakeholderService{
		repo:        repo,
		profileRepo: profileRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		passwords:   newPasswordPolicy(breach, logger),
		logger:      logger,
	}
}

func ToStakeholderResponse(s *model.Stakeholder) *StakeholderResponse {
	return &StakeholderResponse{
		ID:            s.ID.String(),
		Type:          s.Type,
		Name:          s.Name,
		BnName:        s.BnName,
		Designation:   s.Designation,
		BnDesignation: s.BnDesignation,
		MobileNo:      s.Mobile,
		Email:         s.Email,
		IsActive:      s.IsActive,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
}

// validate checks req. A blank password is only accepted when requirePassword is false.
func (s *stakeholderService) validate(ctx context.Context, req *StakeholderRequest, exclude *repository.ProfileRef, requirePassword bool) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.MobileNo = strings.TrimSpace(req.MobileNo)
	verr := validateStruct(req)

	if !verr.Has("email") {
		label, taken, err := s.profileRepo.FindCollision(ctx, repository.ProfileEmailColumns, req.Email, exclude)
		if err != nil {
			return fmt.Errorf("failed to check email uniqueness: %w", err)
		}
		if taken {
			verr.Add("email", fmt.Sprintf("The email has already been taken in %s.", label))
		}
	}
	if !verr.Has("mobileNo") {
		label, taken, err := s.profileRepo.FindCollision(ctx, repository.ProfileMobileColumns, req.MobileNo, exclude)
		if err != nil {
			return fmt.Errorf("failed to check mobile uniqueness: %w", err)
		}
		if taken {
			verr.Add("mobileNo", fmt.Sprintf("The mobile no has already been taken in %s.", label))
		}
	}

	if requirePassword || strings.TrimSpace(req.Password) != "" {
		verr.Merge(s.passwords.Check(ctx, "password", req.Password))
	}
	return verr.OrNil()
}

func (s *stakeholderService) List(ctx context.Context, req StakeholderListRequest) ([]StakeholderResponse, int64, error) {
	items, total, err := s.repo.List(ctx, stakeholderFilter(req))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch stakeholders: %w", err)
	}

	res := make([]StakeholderResponse, 0, len(items))
	for i := range items {
		res = append(res, *ToStakeholderResponse(&items[i]))
	}
	return res, total, nil
}

func (s *stakeholderService) Get(ctx context.Context, id uuid.UUID) (*model.Stakeholder, error) {
	sh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stakeholder: %w", err)
	}
	return sh, nil
}

func (s *stakeholderService) Create(ctx context.Context, actor *policy.Actor, req StakeholderRequest) (*StakeholderResponse, error) {
	if err := s.validate(ctx, &req, nil, true); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	sh := &model.Stakeholder{
		Type:          req.Type,
		Name:          req.Name,
		BnName:        req.BnName,
		Designation:   req.Designation,
		BnDesignation: req.BnDesignation,
		Mobile:        req.MobileNo,
		Email:         req.Email,
		Password:      string(hashed),
		IsActive:      req.IsActive == nil || *req.IsActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, sh); err != nil {
			return fmt.Errorf("failed to create stakeholder: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionCreateStakeholder, sh.ID.String(), sh.Name, map[string]interface{}{
			"type": sh.Type,
		})
	})
	if err != nil {
		return nil, err
	}
	return ToStakeholderResponse(sh), nil
}

func (s *stakeholderService) Update(ctx context.Context, actor *policy.Actor, sh *model.Stakeholder, req StakeholderRequest) (*StakeholderResponse, error) {
	if err := s.validate(ctx, &req, &repository.ProfileRef{Table: "stakeholders", ID: sh.ID}, false); err != nil {
		return nil, err
	}

	sh.Type = req.Type
	sh.Name = req.Name
	sh.BnName = req.BnName
	sh.Designation = req.Designation
	sh.BnDesignation = req.BnDesignation
	sh.Mobile = req.MobileNo
	sh.Email = req.Email
	if req.IsActive != nil {
		sh.IsActive = *req.IsActive
	}

	passwordChanged := strings.TrimSpace(req.Password) != ""
	if passwordChanged {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		sh.Password = string(hashed)
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Update(txCtx, sh); err != nil {
			return fmt.Errorf("failed to update stakeholder: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionUpdateStakeholder, sh.ID.String(), sh.Name, map[string]interface{}{
			"password_changed": passwordChanged,
		})
	})
	if err != nil {
		return nil, err
	}
	return ToStakeholderResponse(sh), nil
}

func (s *stakeholderService) Delete(ctx context.Context, actor *policy.Actor, sh *model.Stakeholder) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, sh.ID); err != nil {
			return fmt.Errorf("failed to delete stakeholder: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionDeleteStakeholder, sh.ID.String(), sh.Name, nil)
	})
}

// Export renders every stakeholder matching the filter, ignoring pagination.
func (s *stakeholderService) Export(ctx context.Context, req StakeholderListRequest) ([]byte, error) {
	filter := stakeholderFilter(req)
	filter.Offset, filter.Limit = 0, 0

	items, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stakeholders: %w", err)
	}
	data, err := export.Stakeholders(items)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Stakeholders exported", zap.Int("rows", len(items)))
	return data, nil
}

func stakeholderFilter(req StakeholderListRequest) repository.StakeholderListFilter {
	return repository.StakeholderListFilter{
		ListOptions: repository.ListOptions{
			Search:    req.Search,
			OrderBy:   req.OrderBy,
			Direction: req.Direction,
			Offset:    (req.Page - 1) * req.Limit,
			Limit:     req.Limit,
		},
		Type: req.Type,
	}
}

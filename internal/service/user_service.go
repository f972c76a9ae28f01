package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"backoffice/internal/mailer"
	"backoffice/internal/model"
	"backoffice/internal/permission"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const generatedPasswordLength = 12

var errInvalidCredentials = errors.New("invalid email or password")

// MailQueue accepts mail for asynchronous delivery.
type MailQueue interface {
	Enqueue(ctx context.Context, msg mailer.Message) error
}

// TokenConfig controls JWT signing and token lifetimes.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DTOs for Request validation
type UserRequest struct {
	FullName      string  `json:"fullName" validate:"required,max=64,validname"`
	BengaliName   *string `json:"bengaliName" validate:"omitempty,max=64"`
	Designation   *string `json:"designation" validate:"omitempty,max=255"`
	BnDesignation *string `json:"bnDesignation" validate:"omitempty,max=255"`
	EmailAddress  *string `json:"emailAddress" validate:"omitempty,max=255,profileemail"`
	Phone         *string `json:"phone" validate:"omitempty,bdmobile"`
	Role          string  `json:"role" validate:"required,uuid"`
	IsActive      *bool   `json:"isActive"`
}

type ChangePasswordRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

type UserListRequest struct {
	Search    string
	RoleID    *uuid.UUID
	OrderBy   string
	Direction string
	Page      int
	Limit     int
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	BnName        *string   `json:"bn_name"`
	Email         *string   `json:"email"`
	Phone         *string   `json:"phone"`
	Designation   *string   `json:"designation"`
	BnDesignation *string   `json:"bn_designation"`
	IsActive      bool      `json:"is_active"`
	RoleID        string    `json:"role_id"`
	Role          string    `json:"role"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

type MeResponse struct {
	UserResponse
	Permissions []string `json:"permissions"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, actor *policy.Actor) (*MeResponse, error)

	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	List(ctx context.Context, actor *policy.Actor, req UserListRequest) ([]UserResponse, int64, error)
	Create(ctx context.Context, actor *policy.Actor, req UserRequest) (*UserResponse, error)
	Update(ctx context.Context, actor *policy.Actor, user *model.User, req UserRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, actor *policy.Actor, user *model.User, req ChangePasswordRequest) error
	Delete(ctx context.Context, actor *policy.Actor, user *model.User) error
	EnsureSuperAdmin(ctx context.Context, email, password string) error
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type userService struct {
	userRepo    repository.UserRepository
	roleRepo    repository.RoleRepository
	profileRepo repository.ProfileRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	mail        MailQueue
	passwords   passwordPolicy
	tokens      TokenConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	profileRepo repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	mail MailQueue,
	breach BreachChecker,
	tokens TokenConfig,
	logger *zap.Logger,
) UserService {
	if tokens.AccessTTL == 0 {
		tokens.AccessTTL = 24 * time.Hour
	}
	if tokens.RefreshTTL == 0 {
		tokens.RefreshTTL = 7 * 24 * time.Hour
	}
	return &userService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		profileRepo: profileRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		mail:        mail,
		passwords:   newPasswordPolicy(breach, logger),
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// Helper: parse model to standard json API response
func ToUserResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		BnName:        user.BnName,
		Email:         user.Email,
		Phone:         user.Phone,
		Designation:   user.Designation,
		BnDesignation: user.BnDesignation,
		IsActive:      user.IsActive,
		Role:          user.RoleName(),
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     user.UpdatedAt.Format(time.RFC3339),
	}
	if user.RoleID != nil {
		resp.RoleID = user.RoleID.String()
	}
	return resp
}

// --- Authentication ---

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errors.New("this account has been deactivated")
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.userRepo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if s.now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(ctx, stored.Token)
		return nil, errors.New("refresh token expired")
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		return nil, errors.New("invalid refresh token")
	}

	// rotate: the presented token is single use
	if err := s.userRepo.DeleteRefreshToken(ctx, stored.Token); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.userRepo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.tokens.AccessTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.RoleName(),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}
	if user.RoleID != nil {
		claims["role_id"] = user.RoleID.String()
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokens.Secret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: now.Add(s.tokens.RefreshTTL),
	}
	if err := s.userRepo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        tokenString,
		RefreshToken: refresh.Token,
		ExpiresAt:    expiresAt.Format(time.RFC3339),
	}, nil
}

func (s *userService) Me(ctx context.Context, actor *policy.Actor) (*MeResponse, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	codes := actor.Codes()
	if actor.IsSuperAdmin() {
		codes = permission.All()
	}
	sort.Strings(codes)
	if codes == nil {
		codes = []string{}
	}
	return &MeResponse{UserResponse: *ToUserResponse(user), Permissions: codes}, nil
}

// --- CRUD ---

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *policy.Actor, req UserListRequest) ([]UserResponse, int64, error) {
	filter := repository.UserListFilter{
		ListOptions: repository.ListOptions{
			Search:    req.Search,
			OrderBy:   req.OrderBy,
			Direction: req.Direction,
			Offset:    (req.Page - 1) * req.Limit,
			Limit:     req.Limit,
		},
		ExcludeUserID: &actor.UserID,
		RoleID:        req.RoleID,
	}
	if !actor.IsSuperAdmin() {
		filter.ExcludeRoles = actor.RestrictedRoles()
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *ToUserResponse(&users[i]))
	}
	return responses, total, nil
}

// validate checks the payload and resolves the requested role.
func (s *userService) validate(ctx context.Context, actor *policy.Actor, req *UserRequest, exclude *repository.ProfileRef) (*model.Role, error) {
	verr := validateStruct(req)

	if req.EmailAddress != nil {
		email := strings.ToLower(strings.TrimSpace(*req.EmailAddress))
		req.EmailAddress = &email
		if email == "" {
			req.EmailAddress = nil
		}
	}
	if req.EmailAddress != nil && !verr.Has("emailAddress") {
		if err := s.checkUnique(ctx, verr, "emailAddress", "email address", repository.ProfileEmailColumns, *req.EmailAddress, exclude); err != nil {
			return nil, err
		}
	}
	if req.Phone != nil && *req.Phone != "" && !verr.Has("phone") {
		if err := s.checkUnique(ctx, verr, "phone", "phone", repository.ProfileMobileColumns, *req.Phone, exclude); err != nil {
			return nil, err
		}
	}

	var role *model.Role
	if !verr.Has("role") {
		roleID, _ := uuid.Parse(req.Role)
		found, err := s.roleRepo.FindByID(ctx, roleID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			verr.Add("role", "The selected user role is invalid.")
		case err != nil:
			return nil, fmt.Errorf("failed to fetch role: %w", err)
		case found.Name == model.RoleSuperAdmin || found.Hideable || actor.IsRestricted(found.Name):
			verr.Add("role", "The selected user role is invalid.")
		default:
			role = found
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *userService) checkUnique(ctx context.Context, verr *ValidationError, field, attr string, columns []repository.ProfileColumn, value string, exclude *repository.ProfileRef) error {
	label, taken, err := s.profileRepo.FindCollision(ctx, columns, value, exclude)
	if err != nil {
		return fmt.Errorf("failed to check %s uniqueness: %w", attr, err)
	}
	if taken {
		verr.Add(field, fmt.Sprintf("The %s has already been taken in %s.", attr, label))
	}
	return nil
}

func (s *userService) Create(ctx context.Context, actor *policy.Actor, req UserRequest) (*UserResponse, error) {
	role, err := s.validate(ctx, actor, &req, nil)
	if err != nil {
		return nil, err
	}

	password, err := generatePassword(generatedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:          strings.TrimSpace(req.FullName),
		BnName:        req.BengaliName,
		Email:         req.EmailAddress,
		Phone:         req.Phone,
		Designation:   req.Designation,
		BnDesignation: req.BnDesignation,
		Password:      string(hashedPassword),
		IsActive:      req.IsActive == nil || *req.IsActive,
		RoleID:        &role.ID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionCreateUser, user.ID.String(), user.Name, map[string]interface{}{
			"role": role.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	user.Role = role

	// the account exists even if the mail never leaves
	if user.Email != nil && s.mail != nil {
		if err := s.mail.Enqueue(ctx, mailer.NewAccountMessage(*user.Email, user.Name, password)); err != nil {
			s.logger.Error("Failed to queue new account mail", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("User created", zap.String("user_id", user.ID.String()), zap.String("role", role.Name))
	return ToUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, actor *policy.Actor, user *model.User, req UserRequest) (*UserResponse, error) {
	role, err := s.validate(ctx, actor, &req, &repository.ProfileRef{Table: "users", ID: user.ID})
	if err != nil {
		return nil, err
	}

	user.Name = strings.TrimSpace(req.FullName)
	user.BnName = req.BengaliName
	user.Email = req.EmailAddress
	user.Phone = req.Phone
	user.Designation = req.Designation
	user.BnDesignation = req.BnDesignation
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.RoleID = &role.ID
	user.Role = role

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionUpdateUser, user.ID.String(), user.Name, map[string]interface{}{
			"role":      role.Name,
			"is_active": user.IsActive,
		})
	})
	if err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

func (s *userService) ChangePassword(ctx context.Context, actor *policy.Actor, user *model.User, req ChangePasswordRequest) error {
	verr := s.passwords.Check(ctx, "password", req.Password)
	if req.Password != req.PasswordConfirmation && !verr.Has("password") {
		verr.Add("password", "The password field confirmation does not match.")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.UpdatePassword(txCtx, user.ID, string(hashed)); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := s.userRepo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionChangePassword, user.ID.String(), user.Name, nil)
	})
}

func (s *userService) Delete(ctx context.Context, actor *policy.Actor, user *model.User) error {
	if actor != nil && actor.UserID == user.ID {
		return reject("You are not allowed to delete your own account.")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.userRepo.DeleteRefreshTokensByUser(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
		if err := s.userRepo.Delete(txCtx, user.ID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return logAudit(txCtx, s.auditRepo, actor, model.ActionDeleteUser, user.ID.String(), user.Name, nil)
	})
}

// EnsureSuperAdmin creates the first Super Admin account when the email is unused.
func (s *userService) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up super admin: %w", err)
	}

	role, err := s.roleRepo.FindByName(ctx, model.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("super admin role missing, seed roles first: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     model.RoleSuperAdmin,
		Email:    &email,
		Password: string(hashed),
		IsActive: true,
		RoleID:   &role.ID,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create super admin: %w", err)
	}
	s.logger.Info("Seeded super admin account", zap.String("email", email))
	return nil
}

func (s *userService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.userRepo.DeleteExpiredRefreshTokens(ctx, s.now())
}

const (
	lowerChars  = "abcdefghijkmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars  = "23456789"
	symbolChars = "!@#$%^&*-_=+?"
)

// generatePassword returns a random password holding every character class.
func generatePassword(length int) (string, error) {
	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	all := strings.Join(classes, "")

	out := make([]byte, 0, length)
	for _, set := range classes {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// shuffle so the class prefix is not predictable
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

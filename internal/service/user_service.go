package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"freightops/internal/apperr"
	"freightops/internal/authz"
	"freightops/internal/middleware"
	"freightops/internal/model"
	"freightops/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// DTOs for request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse returns a user without exposing the password hash.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateUser(ctx context.Context, actor model.Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor model.Actor, id string) error
}

type userService struct {
	repo repository.UserRepository
	db   *gorm.DB
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, db *gorm.DB) UserService {
	return &userService{repo: repo, db: db}
}

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) CreateUser(ctx context.Context, actor model.Actor, req CreateUserRequest) (*UserResponse, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !authz.ValidRole(role) {
		return nil, apperr.Validation("invalid_role", fmt.Sprintf("role must be one of: %s", strings.Join(authz.Roles(), ", ")))
	}

	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.Conflict("username_taken", "username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.Conflict("email_taken", "email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(tx, &actor.ID, model.ActionCreateUser, model.EntityUser, user.ID.String(), map[string]interface{}{
			"username": user.Username,
			"role":     user.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperr.Unauthorized("invalid_credentials", "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid_credentials", "invalid email or password")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account_inactive", "account has been deactivated")
	}
	return s.issueTokens(ctx, user)
}

// RefreshToken rotates a valid refresh token for a fresh token pair.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("refresh_token_invalid", "refresh token is invalid or expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID.String())
	if err != nil {
		return nil, apperr.Unauthorized("refresh_token_invalid", "refresh token is invalid or expired")
	}
	if !user.IsActive {
		return nil, apperr.Unauthorized("account_inactive", "account has been deactivated")
	}

	if err := s.repo.DeleteRefreshToken(ctx, req.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refresh := hex.EncodeToString(raw)

	if err := s.repo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: now.Add(refreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{Token: tokenString, RefreshToken: refresh}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user does not exist")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor model.Actor, id string, req UpdateUserRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user_not_found", "user does not exist")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	changed := []string{}
	if req.Role != "" {
		role := strings.ToLower(strings.TrimSpace(req.Role))
		if !authz.ValidRole(role) {
			return nil, apperr.Validation("invalid_role", fmt.Sprintf("role must be one of: %s", strings.Join(authz.Roles(), ", ")))
		}
		user.Role = role
		changed = append(changed, "role")
	}
	if req.Username != "" && req.Username != user.Username {
		if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
			return nil, apperr.Conflict("username_taken", "username already exists")
		}
		user.Username = req.Username
		changed = append(changed, "username")
	}
	if req.Email != "" && req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
			return nil, apperr.Conflict("email_taken", "email already exists")
		}
		user.Email = req.Email
		changed = append(changed, "email")
	}
	if req.Phone != "" {
		user.Phone = req.Phone
		changed = append(changed, "phone")
	}
	if req.IsActive != nil && *req.IsActive != user.IsActive {
		user.IsActive = *req.IsActive
		changed = append(changed, "is_active")
	}
	if len(changed) == 0 {
		return mapToUserResponse(user), nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return writeAudit(tx, &actor.ID, model.ActionUpdateUser, model.EntityUser, user.ID.String(), map[string]interface{}{
			"changed": changed,
		})
	})
	if err != nil {
		return nil, err
	}

	// Role and activation changes must take effect on the next request.
	middleware.ClearActorCache(user.ID.String())

	return mapToUserResponse(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, actor model.Actor, id string) error {
	if actor.ID.String() == id {
		return apperr.Validation("self_delete", "cannot delete your own account")
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user_not_found", "user does not exist")
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", user.ID).Delete(&model.User{}).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&model.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh tokens: %w", err)
		}
		return writeAudit(tx, &actor.ID, model.ActionDeleteUser, model.EntityUser, user.ID.String(), map[string]interface{}{
			"username": user.Username,
		})
	})
	if err != nil {
		return err
	}

	middleware.ClearActorCache(user.ID.String())
	return nil
}

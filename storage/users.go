package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"contrack/domain"
)

// Accounts created without an explicit password get this one, matching the
// onboarding flow where an admin registers staff who then change it.
const defaultUserPassword = "1234"

// NewUser carries the fields accepted on user creation.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// UserPatch updates the mutable account fields.
type UserPatch struct {
	Email    *string
	IsActive *bool
}

// CreateUser registers an account. Username is required and must be unique.
func (s *Store) CreateUser(ctx context.Context, nu NewUser) (*domain.User, error) {
	if strings.TrimSpace(nu.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	role := nu.Role
	if role == "" {
		role = domain.RoleUser
	} else if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", nu.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username %q", ErrDuplicate, nu.Username)
	}

	password := nu.Password
	if password == "" {
		password = defaultUserPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// ListUsers returns active accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateUser changes email and/or active flag. Deactivation is the only way
// to retire an account.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

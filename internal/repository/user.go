// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"dreamscope/internal/cache"
	"dreamscope/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpsertByEmail(ctx context.Context, user *models.User) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// UpsertByEmail finds the user for a verified identity-provider profile or
// creates one on first login. Profile fields are refreshed on every login so
// name and avatar changes at the provider propagate.
func (r *userRepository) UpsertByEmail(ctx context.Context, user *models.User) (*models.User, error) {
	existing, err := r.GetByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := r.Create(ctx, user); err != nil {
			// Concurrent first login for the same email. Re-read instead of
			// failing the winner-less request.
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
				return r.GetByEmail(ctx, user.Email)
			}
			return nil, err
		}
		return user, nil
	}

	existing.GivenName = user.GivenName
	existing.FamilyName = user.FamilyName
	existing.Picture = user.Picture
	if err := r.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; sqlite reports "unique constraint failed"
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

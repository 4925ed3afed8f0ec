package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/upwave/upwave/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("email or username already exists")
)

// CreateUser inserts the user, surfacing a uniqueness violation on email or
// username as ErrDuplicate. The pre-check and the insert run in one
// transaction so the conflict cannot be swallowed by a concurrent insert
// going unnoticed between them.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).
			Where("email = ? OR username = ?", u.Email, u.Username).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(u).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var users []models.User
	if err := r.DB.WithContext(ctx).Order("created_at").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.DB.WithContext(ctx).Save(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result := r.DB.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRefreshToken overwrites the single stored refresh token, invalidating
// any prior session. Both columns change in one statement so the
// null-pairing invariant always holds.
func (r *GormRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"refresh_token":            token,
			"refresh_token_expires_at": expiresAt,
		}).Error
}

// ClearRefreshToken revokes the stored refresh token. Clearing an already
// cleared row is a no-op, which makes logout idempotent.
func (r *GormRepo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"refresh_token":            nil,
			"refresh_token_expires_at": nil,
		}).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

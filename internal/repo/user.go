package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/drivetrackhq/drivetrack/internal/models"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		// Unique-constraint backstop for two creates racing the
		// FirstOrCreate lookup.
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrDuplicateEmail
	}
	return nil
}

func (r *GormRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("created_at desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	err := r.DB.WithContext(ctx).Save(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uint) error {
	tx := r.DB.WithContext(ctx).Delete(&models.User{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) TopUsersByPoints(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).
		Order("total_points desc").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// RotateRefreshHash overwrites the stored refresh-token hash
// unconditionally. Any previously issued refresh token stops matching.
func (r *GormRepo) RotateRefreshHash(ctx context.Context, userID uint, hash string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token_hash", hash).Error
}

// SwapRefreshHash replaces the stored hash only if it still equals oldHash.
// Concurrent refreshes for the same account race on this compare-and-swap;
// the loser sees no row updated.
func (r *GormRepo) SwapRefreshHash(ctx context.Context, userID uint, oldHash, newHash string) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token_hash = ?", userID, oldHash).
		Update("refresh_token_hash", newHash)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormRepo) ClearRefreshHash(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token_hash", nil).Error
}

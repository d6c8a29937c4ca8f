package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/drivetrackhq/drivetrack/internal/models"
)

// RecordTrip persists the trip and credits its points to the driver in one
// transaction, so a failed points update never leaves an orphaned trip row.
func (r *GormRepo) RecordTrip(ctx context.Context, t *models.Trip) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", t.UserID).
			UpdateColumn("total_points", gorm.Expr("total_points + ?", t.PointsEarned)).Error
	})
}

func (r *GormRepo) TripsByUser(ctx context.Context, userID uint) ([]models.Trip, error) {
	var trips []models.Trip
	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

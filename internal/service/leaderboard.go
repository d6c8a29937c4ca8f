package service

import (
	"context"

	"github.com/drivetrackhq/drivetrack/internal/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// Leaderboard returns the top drivers by total points. limit <= 0 falls
// back to the default; anything above the cap is clamped.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.Repo.TopUsersByPoints(ctx, limit)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/drivetrackhq/drivetrack/internal/events"
	"github.com/drivetrackhq/drivetrack/internal/logging"
	"github.com/drivetrackhq/drivetrack/internal/models"
	"github.com/drivetrackhq/drivetrack/internal/repo"
)

type TripService struct {
	Repo     *repo.GormRepo
	Producer *events.Producer
}

type TripInput struct {
	Distance       float64
	AverageSpeed   float64
	HarshBrakes    int
	OverspeedCount int
}

type TripSummary struct {
	UserID            uint    `json:"user_id"`
	TotalTrips        int     `json:"total_trips"`
	TotalDistance     float64 `json:"total_distance"`
	AvgSafetyScore    float64 `json:"avg_safety_score"`
	TotalPointsEarned int     `json:"total_points_earned"`
}

// SafetyScore rates a trip from 0 to 100. Harsh brakes cost 5 each,
// overspeed events 3 each; extreme average speeds cost a flat penalty.
func SafetyScore(in TripInput) int {
	score := 100
	score -= in.HarshBrakes * 5
	score -= in.OverspeedCount * 3

	if in.AverageSpeed > 100 {
		score -= 10
	}
	if in.AverageSpeed < 20 {
		score -= 5
	}

	if score < 0 {
		return 0
	}
	return score
}

func PointsForScore(score int) int {
	switch {
	case score >= 90:
		return 50
	case score >= 80:
		return 30
	case score >= 70:
		return 15
	case score >= 60:
		return 5
	default:
		return 0
	}
}

func (s *TripService) Record(ctx context.Context, userID uint, in TripInput) (*models.Trip, error) {
	l := logging.FromContext(ctx).With("svc", "trip.record", "user_id", userID)

	if _, err := s.Repo.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	score := SafetyScore(in)
	points := PointsForScore(score)

	trip := models.Trip{
		UserID:         userID,
		Distance:       in.Distance,
		AverageSpeed:   in.AverageSpeed,
		HarshBrakes:    in.HarshBrakes,
		OverspeedCount: in.OverspeedCount,
		SafetyScore:    score,
		PointsEarned:   points,
	}
	if err := s.Repo.RecordTrip(ctx, &trip); err != nil {
		l.Error("trip_record_error", "error", err)
		return nil, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":          "trip_recorded",
		"trip_id":       trip.ID,
		"user_id":       userID,
		"safety_score":  score,
		"points_earned": points,
	})

	l.Info("trip_recorded", "trip_id", trip.ID, "safety_score", score, "points", points)
	return &trip, nil
}

func (s *TripService) ListByUser(ctx context.Context, userID uint) ([]models.Trip, error) {
	return s.Repo.TripsByUser(ctx, userID)
}

func (s *TripService) Summary(ctx context.Context, userID uint) (*TripSummary, error) {
	trips, err := s.Repo.TripsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &TripSummary{UserID: userID}
	if len(trips) == 0 {
		return summary, nil
	}

	var scoreSum int
	for _, t := range trips {
		summary.TotalDistance += t.Distance
		summary.TotalPointsEarned += t.PointsEarned
		scoreSum += t.SafetyScore
	}
	summary.TotalTrips = len(trips)
	summary.TotalDistance = round2(summary.TotalDistance)
	summary.AvgSafetyScore = round2(float64(scoreSum) / float64(len(trips)))

	return summary, nil
}

func (s *TripService) publish(ctx context.Context, userID uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(ctx, events.TopicTripEvents, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicTripEvents, "error", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package models

import (
	"time"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Avatar       string `json:"avatar"`
	Role         string `gorm:"not null;default:USER"    json:"role"`

	// Hash of the single live refresh token. Nil means no active session.
	RefreshTokenHash *string `json:"-"`

	TotalPoints int       `gorm:"not null;default:0" json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Trip struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null"           json:"user_id"`
	Distance       float64   `gorm:"not null"                 json:"distance"`
	AverageSpeed   float64   `gorm:"not null"                 json:"average_speed"`
	HarshBrakes    int       `json:"harsh_brakes"`
	OverspeedCount int       `json:"overspeed_count"`
	SafetyScore    int       `json:"safety_score"`
	PointsEarned   int       `json:"points_earned"`
	CreatedAt      time.Time `json:"created_at"`
}

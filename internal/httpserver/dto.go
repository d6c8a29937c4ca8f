package httpserver

import (
	"time"

	"github.com/drivetrackhq/drivetrack/internal/models"
)

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type createTripRequest struct {
	Distance       float64 `json:"distance"`
	AverageSpeed   float64 `json:"average_speed"`
	HarshBrakes    int     `json:"harsh_brakes"`
	OverspeedCount int     `json:"overspeed_count"`
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type updateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// userView is the safe projection of a user: no hash fields ever leave
// the server.
type userView struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Avatar      string    `json:"avatar"`
	Role        string    `json:"role"`
	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

type authResponse struct {
	User            userView  `json:"user"`
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func viewOf(u *models.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Avatar:      u.Avatar,
		Role:        u.Role,
		TotalPoints: u.TotalPoints,
		CreatedAt:   u.CreatedAt,
	}
}

func viewsOf(users []models.User) []userView {
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, viewOf(&users[i]))
	}
	return views
}

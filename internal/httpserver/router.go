package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/drivetrackhq/drivetrack/internal/middleware/auth"
	"github.com/drivetrackhq/drivetrack/internal/models"
)

type Deps struct {
	AuthHandler *AuthHTTP
	TripHandler *TripHTTP
	UserHandler *UserHTTP
	Guard       *mwauth.Guard
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	authG := v1.Group("/auth")
	authG.POST("/signup", d.AuthHandler.Signup)
	authG.POST("/login", d.AuthHandler.Login)
	authG.POST("/refresh", d.AuthHandler.Refresh)
	authG.POST("/logout", d.AuthHandler.Logout)

	private := v1.Group("", d.Guard.RequireAuth)

	private.GET("/users/me", d.UserHandler.Me)
	private.GET("/leaderboard", d.UserHandler.Leaderboard)

	trips := private.Group("/trips")
	trips.POST("", d.TripHandler.Create)
	trips.GET("", d.TripHandler.List)
	trips.GET("/summary", d.TripHandler.Summary)

	admin := private.Group("/admin", d.Guard.RequireRole(models.RoleAdmin))
	admin.POST("/users", d.UserHandler.Create)
	admin.GET("/users", d.UserHandler.List)
	admin.GET("/users/:id", d.UserHandler.Get)
	admin.PATCH("/users/:id", d.UserHandler.Update)
	admin.DELETE("/users/:id", d.UserHandler.Delete)
}

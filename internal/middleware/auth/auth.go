package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/drivetrackhq/drivetrack/internal/tokens"
)

// Context keys set by RequireAuth.
const (
	KeyUserID    = "user_id"
	KeyEmail     = "email"
	KeyRole      = "role"
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
)

type Guard struct {
	Issuer *tokens.Issuer
}

func NewGuard(issuer *tokens.Issuer) *Guard {
	return &Guard{Issuer: issuer}
}

// RequireAuth authenticates the request from the Authorization bearer
// token. The decoded claims become the request identity; the user record
// is never re-fetched on this path, so role changes only apply once the
// token is re-issued.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := g.Issuer.ParseAccess(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(KeyUserID, userID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyFirstName, claims.FirstName)
		c.Set(KeyLastName, claims.LastName)

		return next(c)
	}
}

// RequireRole gates a route on the identity's role claim. With no roles
// declared it always passes.
func (g *Guard) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(roles) == 0 {
				return next(c)
			}
			role, _ := c.Get(KeyRole).(string)
			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(KeyUserID).(uint)
	return id, ok
}

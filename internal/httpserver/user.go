package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mwauth "github.com/drivetrackhq/drivetrack/internal/middleware/auth"
	"github.com/drivetrackhq/drivetrack/internal/service"
)

type UserHTTP struct {
	Svc *service.UserService
}

// Me answers from the access-token claims alone, without a DB read.
func (h *UserHTTP) Me(c echo.Context) error {
	userID, ok := mwauth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":         userID,
		"email":      c.Get(mwauth.KeyEmail),
		"role":       c.Get(mwauth.KeyRole),
		"first_name": c.Get(mwauth.KeyFirstName),
		"last_name":  c.Get(mwauth.KeyLastName),
	})
}

func (h *UserHTTP) Leaderboard(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.Svc.Leaderboard(ctx, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"leaderboard": viewsOf(users),
	})
}

func (h *UserHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Create(ctx, service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, viewOf(user))
}

func (h *UserHTTP) List(c echo.Context) error {
	users, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": viewsOf(users),
		"total": len(users),
	})
}

func (h *UserHTTP) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, viewOf(user))
}

func (h *UserHTTP) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Update(c.Request().Context(), id, service.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, viewOf(user))
}

func (h *UserHTTP) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

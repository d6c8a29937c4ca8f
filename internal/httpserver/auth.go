package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/drivetrackhq/drivetrack/internal/logging"
	"github.com/drivetrackhq/drivetrack/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Signup(ctx, service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusCreated, authResponse{
		User:            viewOf(res.User),
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExp,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusOK, authResponse{
		User:            viewOf(res.User),
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExp,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	raw := h.refreshTokenFrom(c)
	if raw == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	res, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		// An unknown account on this path is an auth failure, not a
		// lookup miss: the session is dead and the client must log in
		// again.
		if errors.Is(err, service.ErrUserNotFound) {
			err = service.ErrInvalidRefreshToken
		}
		return httpError(err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp))

	return c.JSON(http.StatusOK, authResponse{
		User:            viewOf(res.User),
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExp,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	raw := h.refreshTokenFrom(c)
	if raw == "" {
		// No candidate to decode: same failure as a malformed token.
		// The cookie is cleared anyway so a broken client can recover.
		c.SetCookie(deleteRefreshCookie())
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	if err := h.Svc.Logout(ctx, raw); err != nil {
		c.SetCookie(deleteRefreshCookie())
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return httpError(err)
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	c.SetCookie(deleteRefreshCookie())
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) refreshTokenFrom(c echo.Context) string {
	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if err := c.Bind(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/drivetrackhq/drivetrack/internal/middleware/auth"
	"github.com/drivetrackhq/drivetrack/internal/service"
)

type TripHTTP struct {
	Svc *service.TripService
}

func (h *TripHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := mwauth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var req createTripRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Distance < 0 || req.AverageSpeed < 0 || req.HarshBrakes < 0 || req.OverspeedCount < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	trip, err := h.Svc.Record(ctx, userID, service.TripInput{
		Distance:       req.Distance,
		AverageSpeed:   req.AverageSpeed,
		HarshBrakes:    req.HarshBrakes,
		OverspeedCount: req.OverspeedCount,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "trip recorded",
		"trip":    trip,
	})
}

func (h *TripHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := mwauth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	trips, err := h.Svc.ListByUser(ctx, userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count": len(trips),
		"trips": trips,
	})
}

func (h *TripHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := mwauth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	summary, err := h.Svc.Summary(ctx, userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, summary)
}

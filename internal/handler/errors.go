package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-session-planner/internal/service"
)

// Error messages returned to clients.  They match what the browser
// client already displays.
const (
	msgInvalidBody        = "invalid body"
	msgSessionNotFound    = "Session not found"
	msgAttendanceNotFound = "Attendance not found"
	msgInvalidMgmtCode    = "Invalid management code"
	msgInvalidCode        = "Invalid code"
	msgSessionFull        = "Session is full"
	msgInternal           = "internal server error"
)

// failure maps a service error onto a status code and JSON error body.
// notFound and forbidden are the operation specific messages for
// service.ErrNotFound and service.ErrForbidden.  Anything unrecognised is
// logged and reported as a 500 without leaking details.
func failure(c echo.Context, logger *slog.Logger, err error, notFound, forbidden string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": forbidden})
	case errors.Is(err, service.ErrSessionFull):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msgSessionFull})
	case errors.Is(err, service.ErrInvalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	logger.ErrorContext(c.Request().Context(), "request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.Any("error", err),
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgInternal})
}

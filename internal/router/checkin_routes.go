package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/handler"
	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/model"
)

// RegisterCheckIn registers the door-scanning endpoint.  Only club staff
// and admins may check guests in; limit throttles each operator.
func RegisterCheckIn(e *echo.Echo, h *handler.CheckInHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClub, model.RoleAdmin),
	)
	g.POST("/verify-qr", h.VerifyQR, limit)
}

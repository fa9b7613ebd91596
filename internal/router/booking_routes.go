package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/handler"
	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/model"
)

// RegisterBookings registers the endpoints a signed-in guest uses to book
// events and manage their tickets.  Ownership of a booking is checked in
// the handlers.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleClub, model.RoleAdmin),
	)
	g.POST("/events/:id/book", h.BookEvent)
	g.GET("/my-bookings", h.MyBookings)
	g.PATCH("/bookings/:id/cancel", h.CancelBooking)
	g.GET("/bookings/:id/ticket", h.Ticket)
}

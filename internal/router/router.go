// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/club-event-ticketing/internal/handler"
	"github.com/iliyamo/club-event-ticketing/internal/middleware"
	"github.com/iliyamo/club-event-ticketing/internal/model"
)

// RegisterRoutes registers the unauthenticated operational endpoints: a
// health check that pings db and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterAuth registers the authentication endpoints.  OTP requests go
// through otpLimit so codes cannot be sprayed at arbitrary inboxes.  /v1/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, otpLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/otp/send", a.SendOTP, otpLimit)
	g.POST("/otp/verify", a.VerifyOTP, otpLimit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me, middleware.RequireRole(model.RoleUser, model.RoleClub, model.RoleAdmin))
}

// RegisterPublic registers browse endpoints that need no authentication.
// cache is applied to event pages.
func RegisterPublic(e *echo.Echo, ev *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events/:id", ev.GetEvent, cache)
}

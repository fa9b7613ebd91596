package handler

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/middleware"
)

var errNoUser = errors.New("no authenticated user in context")

// getUserID extracts the authenticated user's ID set by JWTAuth.
func getUserID(c echo.Context) (string, error) {
	id := middleware.UserID(c)
	if id == "" {
		return "", errNoUser
	}
	return id, nil
}

// pathID reads a UUID path parameter.  It returns "" when the value is
// not a UUID so callers can answer 400 without touching the database.
func pathID(c echo.Context, name string) string {
	raw := strings.TrimSpace(c.Param(name))
	if _, err := uuid.Parse(raw); err != nil {
		return ""
	}
	return raw
}

package middleware // middleware holds the reusable HTTP middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-event-ticketing/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role into the request context, readable
// through UserID and Role.  Ticket credentials signed with the same secret
// are refused because they carry no subject.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			SetIdentity(c, claims.Subject, claims.Role)
			return next(c)
		}
	}
}

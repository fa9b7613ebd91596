package middleware

// identity.go defines the context keys JWTAuth populates and accessors for
// them shared by the other middleware and by handlers.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's ID, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// SetIdentity stores the authenticated identity on the context.
func SetIdentity(c echo.Context, userID, role string) {
	c.Set(ctxUserID, userID)
	c.Set(ctxRole, role)
}

// userKey identifies the caller for rate limiting.
func userKey(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}

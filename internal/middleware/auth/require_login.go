package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Middleware struct {
	JWTSecret []byte
}

// RequireLogin resolves the current identity from the accessToken cookie
// and stores it on the request context.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie("accessToken")
		if err != nil || cookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
		}

		ident, err := identityFromToken(cookie.Value, m.JWTSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(identityKey, *ident)
		return next(c)
	}
}

package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin builds on RequireLogin and additionally checks the role.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireLogin(func(c echo.Context) error {
		ident, err := CurrentIdentity(c)
		if err != nil {
			return err
		}
		if !ident.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin only")
		}
		return next(c)
	})
}

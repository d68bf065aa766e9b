package loggingmw

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/logging"
)

// Middleware puts a request-scoped logger into the context and writes one
// line per request on the way out.
func Middleware(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqLogger := l.With(
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			ctx := logging.IntoContext(c.Request().Context(), reqLogger)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			if err != nil {
				// An unhandled error becomes a 500 once echo's error
				// handler runs; log it as such, not as the unwritten 200.
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			reqLogger.Info("request",
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

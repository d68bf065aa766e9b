package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	cookieName = "XSRF-TOKEN"
	headerName = "X-CSRF-Token"
	formField  = "csrf_token"

	tokenBytes = 32
	cookieAge  = 24 * time.Hour
)

// Config controls the double-submit check. Zero value is usable: every
// mutating request must echo the XSRF-TOKEN cookie back in the X-CSRF-Token
// header or the csrf_token form field.
type Config struct {
	Secure    bool
	SkipPaths []string
}

// Middleware protects cookie-authenticated mutations. Safe methods pass
// through and receive the token; unsafe methods are rejected with 403 unless
// the submitted token matches the cookie. Requests that carry an Origin
// header must also match the request host.
func Middleware(cfg Config) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if _, ok := skip[req.URL.Path]; ok {
				return next(c)
			}

			token := cookieToken(req)
			if token == "" {
				fresh, err := newToken()
				if err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
				}
				token = fresh
			}
			setCookie(c, cfg, token)

			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				c.Response().Header().Set(headerName, token)
				return next(c)
			}

			if origin := req.Header.Get("Origin"); origin != "" && !matchesHost(origin, req.Host) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}

			submitted := req.Header.Get(headerName)
			if submitted == "" {
				submitted = c.FormValue(formField)
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
			}

			return next(c)
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// setCookie refreshes the token cookie on every response. The cookie is
// deliberately readable by scripts so the frontend can copy it into the
// request header.
func setCookie(c echo.Context, cfg Config, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieToken(req *http.Request) string {
	cookie, err := req.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func matchesHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

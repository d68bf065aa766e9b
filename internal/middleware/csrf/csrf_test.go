package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func run(t *testing.T, cfg Config, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, Middleware(cfg)(okHandler)(c)
}

func issuedToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == cookieName {
			return cookie.Value
		}
	}
	t.Fatal("no token cookie issued")
	return ""
}

func TestGetIssuesToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)

	rec, err := run(t, Config{}, req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	token := issuedToken(t, rec)
	require.NotEmpty(t, token)
	require.Equal(t, token, rec.Header().Get(headerName))
}

func TestPostWithoutTokenRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)

	_, err := run(t, Config{}, req)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestPostWithHeaderTokenAccepted(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec, err := run(t, Config{}, get)
	require.NoError(t, err)
	token := issuedToken(t, rec)

	post := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	post.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	post.Header.Set(headerName, token)

	rec, err = run(t, Config{}, post)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPostWithFormTokenAccepted(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec, err := run(t, Config{}, get)
	require.NoError(t, err)
	token := issuedToken(t, rec)

	form := url.Values{formField: {token}}
	post := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(form.Encode()))
	post.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	post.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	rec, err = run(t, Config{}, post)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPostWithMismatchedTokenRejected(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	post.AddCookie(&http.Cookie{Name: cookieName, Value: "aaaa"})
	post.Header.Set(headerName, "bbbb")

	_, err := run(t, Config{}, post)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestPostWithForeignOriginRejected(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	post.AddCookie(&http.Cookie{Name: cookieName, Value: "aaaa"})
	post.Header.Set(headerName, "aaaa")
	post.Header.Set("Origin", "https://evil.example.com")

	_, err := run(t, Config{}, post)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestSkippedPathBypassesCheck(t *testing.T) {
	post := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)

	rec, err := run(t, Config{SkipPaths: []string{"/api/v1/login"}}, post)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

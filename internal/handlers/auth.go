package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/cart"
	"github.com/kmoroz/craft_shop/internal/identity"
	"github.com/kmoroz/craft_shop/internal/logging"
	"github.com/kmoroz/craft_shop/internal/middleware/auth"
	"github.com/kmoroz/craft_shop/internal/mykafka"
)

const accessTokenTTL = 12 * time.Hour

type AuthHandler struct {
	Repo      *identity.Repo
	Cart      *cart.Store
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req struct {
		FullName string `json:"full_name" form:"full_name"`
		Email    string `json:"email"     form:"email"`
		Phone    string `json:"phone"     form:"phone"`
		Password string `json:"password"  form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var problems []string
	if strings.TrimSpace(req.FullName) == "" {
		problems = append(problems, "full name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		problems = append(problems, "email is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		problems = append(problems, "phone is required")
	}
	if len(problems) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": problems})
	}

	ident, err := h.Repo.Register(ctx, strings.TrimSpace(req.FullName),
		strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		l.Error("register failed", "error", err)
		return echo.NewHTTPError(http.StatusConflict, "could not register")
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": ident.ID,
		"email":  ident.Email,
	})

	l.Info("subscriber registered", "user_id", ident.ID)
	return c.JSON(http.StatusCreated, ident)
}

// Login matches a customer by email+phone, or an admin by email+password
// when a password is submitted.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"    form:"email"`
		Phone    string `json:"phone"    form:"phone"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var (
		ident *identity.Identity
		err   error
	)
	if req.Password != "" {
		ident, err = h.Repo.LoginAdmin(ctx, strings.TrimSpace(req.Email), req.Password)
	} else {
		ident, err = h.Repo.LoginCustomer(ctx, strings.TrimSpace(req.Email), strings.TrimSpace(req.Phone))
	}
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		l.Error("login failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	exp := time.Now().Add(accessTokenTTL)
	token, err := auth.SignAccessToken(ident, h.JWTSecret, exp)
	if err != nil {
		l.Error("token sign failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	c.SetCookie(auth.CreateCookie("accessToken", token, "/", exp))

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": ident.ID,
	})

	l.Info("login ok", "user_id", ident.ID, "role", ident.Role)
	return c.JSON(http.StatusOK, echo.Map{
		"user":     ident,
		"is_admin": ident.IsAdmin(),
	})
}

// Logout expires the cookie and drops the session cart with it.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ident, err := auth.CurrentIdentity(c); err == nil {
		h.Cart.Clear(ident.ID)
		h.publish(c, map[string]any{
			"type":   "user_logged_out",
			"userID": ident.ID,
		})
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(auth.CreateCookie("accessToken", "", "/", expired))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/identity"
)

const identityKey = "identity"

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func SignAccessToken(ident *identity.Identity, secret []byte, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   ident.ID,
		"name":  ident.Name,
		"email": ident.Email,
		"role":  ident.Role,
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func identityFromToken(tokenString string, secret []byte) (*identity.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid subject claim")
	}

	ident := &identity.Identity{ID: uint(sub)}
	if v, ok := claims["name"].(string); ok {
		ident.Name = v
	}
	if v, ok := claims["email"].(string); ok {
		ident.Email = v
	}
	if v, ok := claims["role"].(string); ok {
		ident.Role = v
	}
	return ident, nil
}

// CurrentIdentity reads the identity RequireLogin stored on the context.
func CurrentIdentity(c echo.Context) (identity.Identity, error) {
	v := c.Get(identityKey)
	ident, ok := v.(identity.Identity)
	if !ok {
		return identity.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return ident, nil
}

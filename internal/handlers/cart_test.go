package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kmoroz/craft_shop/internal/cart"
	"github.com/kmoroz/craft_shop/internal/catalog"
	"github.com/kmoroz/craft_shop/internal/identity"
)

type stubCatalog struct {
	products map[int]catalog.Product
}

func (s *stubCatalog) Get(id int) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func newCartHandler() *CartHandler {
	return &CartHandler{Cart: cart.NewStore(&stubCatalog{products: map[int]catalog.Product{
		1: {ID: 1, Name: "Clay Bowl", Price: 12.50},
		2: {ID: 2, Name: "Ceramic Mug", Price: 9.00},
	}})}
}

type cartResponse struct {
	Lines  []cart.Line `json:"lines"`
	Totals cart.Totals `json:"totals"`
}

func asUser(c echo.Context, id uint) {
	c.Set("identity", identity.Identity{ID: id, Name: "Mira Vetrova", Email: "mira@example.com", Role: "user"})
}

func TestGetCartRequiresIdentity(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	req, rec := jsonRequest(http.MethodGet, "/api/v1/cart", "")
	c := e.NewContext(req, rec)

	err := h.GetCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAddToCartDefaultsQuantityToOne(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/v1/cart", `{"product_id":1}`)
	c := e.NewContext(req, rec)
	asUser(c, 7)

	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Lines, 1)
	require.Equal(t, 1, body.Lines[0].Quantity)
	require.Equal(t, 12.50, body.Totals.Subtotal)
}

func TestAddToCartRequiresProductID(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/v1/cart", `{"quantity":2}`)
	c := e.NewContext(req, rec)
	asUser(c, 7)

	err := h.AddToCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	require.NoError(t, h.Cart.Add(7, 1, 3))

	req, rec := jsonRequest(http.MethodPatch, "/api/v1/cart/1", `{"quantity":0}`)
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 7)

	require.NoError(t, h.SetQuantity(c))

	var body cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Lines)
	require.Equal(t, 0, body.Totals.ItemCount)
}

func TestRemoveFromCart(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	require.NoError(t, h.Cart.Add(7, 1, 1))
	require.NoError(t, h.Cart.Add(7, 2, 1))

	req, rec := jsonRequest(http.MethodDelete, "/api/v1/cart/1", "")
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 7)

	require.NoError(t, h.RemoveFromCart(c))

	var body cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Lines, 1)
	require.Equal(t, 2, body.Lines[0].ProductID)
}

func TestClearCart(t *testing.T) {
	h := newCartHandler()
	e := echo.New()

	require.NoError(t, h.Cart.Add(7, 1, 2))
	require.NoError(t, h.Cart.Add(7, 2, 1))

	req, rec := jsonRequest(http.MethodDelete, "/api/v1/cart", "")
	c := e.NewContext(req, rec)
	asUser(c, 7)

	require.NoError(t, h.ClearCart(c))

	var body cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Lines)
	require.Equal(t, 0.00, body.Totals.Subtotal)
}

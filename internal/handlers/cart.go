package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/cart"
	"github.com/kmoroz/craft_shop/internal/logging"
	"github.com/kmoroz/craft_shop/internal/middleware/auth"
	"github.com/kmoroz/craft_shop/internal/mykafka"
)

type CartHandler struct {
	Cart     *cart.Store
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  h.Cart.Lines(ident.ID),
		"totals": h.Cart.Totals(ident.ID),
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID int `json:"product_id" form:"product_id"`
		Quantity  int `json:"quantity"   form:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.Cart.Add(ident.ID, req.ProductID, req.Quantity); err != nil {
		l.Error("add to cart failed", "product_id", req.ProductID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    ident.ID,
		"productID": req.ProductID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  h.Cart.Lines(ident.ID),
		"totals": h.Cart.Totals(ident.ID),
	})
}

func (h *CartHandler) SetQuantity(c echo.Context) error {
	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity int `json:"quantity" form:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	h.Cart.SetQuantity(ident.ID, productID, req.Quantity)

	h.publish(c, map[string]any{
		"type":      "cart_quantity_set",
		"userID":    ident.ID,
		"productID": productID,
		"quantity":  req.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  h.Cart.Lines(ident.ID),
		"totals": h.Cart.Totals(ident.ID),
	})
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	h.Cart.Remove(ident.ID, productID)

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    ident.ID,
		"productID": productID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  h.Cart.Lines(ident.ID),
		"totals": h.Cart.Totals(ident.ID),
	})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	h.Cart.Clear(ident.ID)

	h.publish(c, map[string]any{
		"type":   "cart_cleared",
		"userID": ident.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"lines":  h.Cart.Lines(ident.ID),
		"totals": h.Cart.Totals(ident.ID),
	})
}

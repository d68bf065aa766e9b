package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/catalog"
	"github.com/kmoroz/craft_shop/internal/identity"
	"github.com/kmoroz/craft_shop/internal/logging"
	"github.com/kmoroz/craft_shop/internal/middleware/auth"
	"github.com/kmoroz/craft_shop/internal/mykafka"
	"github.com/kmoroz/craft_shop/internal/orders"
	"github.com/kmoroz/craft_shop/internal/util"
)

type OrderHandler struct {
	Svc         *orders.Service
	Subscribers *identity.Repo
	Catalog     *catalog.Store
	Producer    *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

// Checkout places the order. The cart survives this call on purpose: the
// confirmation and payment pages still render from it, and only a confirmed
// payment clears it.
func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.checkout")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	var req orders.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.PlaceOrder(ctx, ident, req)
	var verr *orders.ValidationError
	switch {
	case errors.Is(err, orders.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"code":   "empty_cart",
			"errors": []string{"your cart is empty"},
		})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Problems})
	case err != nil:
		l.Error("checkout failed", "user_id", ident.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "unable to place order, please try again")
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  ident.ID,
		"total":   order.TotalAmount,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"status":       order.Status,
	})
}

// ConfirmPayment simulates the gateway round-trip. Any non-empty payment
// method is accepted and the order moves straight to paid.
func (h *OrderHandler) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.payment")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		PaymentMethod string `json:"payment_method" form:"payment_method"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.PaymentMethod == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": []string{"please select a payment method"}})
	}

	// Ownership check first so foreign orders read as not-found.
	if _, err := h.Svc.GetOrder(ctx, uint(orderID), ident); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("order lookup failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "payment processing failed, please try again")
	}

	order, err := h.Svc.ConfirmPayment(ctx, uint(orderID))
	if err != nil {
		l.Error("payment confirm failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "payment processing failed, please try again")
	}

	reference := uuid.NewString()
	h.publish(c, map[string]any{
		"type":      "order_paid",
		"orderID":   order.ID,
		"userID":    ident.ID,
		"reference": reference,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id":          order.ID,
		"status":            order.Status,
		"total_amount":      order.TotalAmount,
		"payment_method":    req.PaymentMethod,
		"payment_reference": reference,
	})
}

func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	out, err := h.Svc.ListUserOrders(ctx, ident.ID)
	if err != nil {
		l.Error("list orders failed", "user_id", ident.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load orders")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	order, err := h.Svc.GetOrder(ctx, uint(orderID), ident)
	if errors.Is(err, orders.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		l.Error("get order failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.items")

	ident, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if _, err := h.Svc.GetOrder(ctx, uint(orderID), ident); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("order lookup failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}

	items, err := h.Svc.OrderItems(ctx, uint(orderID))
	if err != nil {
		l.Error("order items failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order items")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *OrderHandler) AdminListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_list")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Offset(page, size)

	total, out, err := h.Svc.ListAllOrders(ctx, offset, limit)
	if err != nil {
		l.Error("list all orders failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load orders")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": out,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHandler) AdminSetStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.set_status")

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	err = h.Svc.SetStatus(ctx, uint(orderID), req.Status)
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Problems})
	case errors.Is(err, orders.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case err != nil:
		l.Error("set status failed", "order_id", orderID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update order")
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"orderID": orderID,
		"status":  req.Status,
	})

	l.Info("order status changed", "order_id", orderID, "status", req.Status)
	return c.JSON(http.StatusOK, echo.Map{"order_id": orderID, "status": req.Status})
}

func (h *OrderHandler) AdminStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.stats")

	stats, err := h.Svc.Statistics(ctx, h.Subscribers, h.Catalog)
	if err != nil {
		l.Error("stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/catalog"
	"github.com/kmoroz/craft_shop/internal/logging"
	"github.com/kmoroz/craft_shop/internal/mykafka"
	"github.com/kmoroz/craft_shop/internal/service/search"
)

type ProductHandler struct {
	Store    *catalog.Store
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "error", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *catalog.Product) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, h.ES, h.ESIndex, p); err != nil {
		logging.FromContext(c.Request().Context()).Error("es index failed", "product_id", p.ID, "error", err)
	}
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	q := c.QueryParam("search")
	limit := parseIntDefault(c.QueryParam("limit"), 0)

	products, err := h.Store.List(q, limit)
	if err != nil {
		l.Error("list products failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load products")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data":  products,
		"total": len(products),
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	product, err := h.Store.Get(id)
	if errors.Is(err, catalog.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		l.Error("get product failed", "product_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load product")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	product, err := h.Store.Create(req)
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Problems})
	}
	if err != nil {
		l.Error("create product failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save product")
	}

	h.index(c, product)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"name":      product.Name,
	})

	l.Info("product created", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	product, err := h.Store.Update(id, req)
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Problems})
	case errors.Is(err, catalog.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	case err != nil:
		l.Error("update product failed", "product_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save product")
	}

	h.index(c, product)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"name":      product.Name,
	})

	l.Info("product updated", "product_id", product.ID)
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	deleted, err := h.Store.Delete(id)
	if err != nil {
		l.Error("delete product failed", "product_id", id, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	if h.ES != nil {
		esCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := search.DeleteProduct(esCtx, h.ES, h.ESIndex, id); err != nil {
			l.Error("es delete failed", "product_id", id, "error", err)
		}
		cancel()
	}
	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	l.Info("product deleted", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

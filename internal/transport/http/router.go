package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kmoroz/craft_shop/internal/handlers"
	"github.com/kmoroz/craft_shop/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	SearchHandler  *handlers.SearchHandler
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	mw := &auth.Middleware{JWTSecret: d.JWTSecret}

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	user := v1.Group("", mw.RequireLogin)
	user.POST("/logout", d.AuthHandler.Logout)

	user.GET("/cart", d.CartHandler.GetCart)
	user.POST("/cart", d.CartHandler.AddToCart)
	user.PATCH("/cart/:id", d.CartHandler.SetQuantity)
	user.DELETE("/cart/:id", d.CartHandler.RemoveFromCart)
	user.DELETE("/cart", d.CartHandler.ClearCart)

	user.POST("/checkout", d.OrderHandler.Checkout)
	user.GET("/orders", d.OrderHandler.ListMyOrders)
	user.GET("/orders/:id", d.OrderHandler.GetOrder)
	user.GET("/orders/:id/items", d.OrderHandler.GetOrderItems)
	user.POST("/orders/:id/payment", d.OrderHandler.ConfirmPayment)

	admin := v1.Group("/admin", mw.RequireAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.UpdateProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.GET("/orders", d.OrderHandler.AdminListOrders)
	admin.PATCH("/orders/:id/status", d.OrderHandler.AdminSetStatus)
	admin.GET("/stats", d.OrderHandler.AdminStats)
}

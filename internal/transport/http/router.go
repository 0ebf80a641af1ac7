package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/handlers"
	"github.com/arkocart/storefront/internal/handlers/cart"
	"github.com/arkocart/storefront/internal/middleware/auth"
)

type Deps struct {
	DB             *gorm.DB
	Auth           *auth.Middleware
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	OrderHandler   *handlers.OrderHandler
	CartHandler    *cart.CartHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", d.AuthHandler.Register)
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/logout", d.AuthHandler.LogOut)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	orders := v1.Group("/orders")
	orders.POST("", d.OrderHandler.CreateOrder, d.Auth.OptionalUser)
	orders.GET("/my-orders", d.OrderHandler.MyOrders, d.Auth.RequireLogin)
	orders.GET("", d.OrderHandler.ListOrders, d.Auth.AdminOnly)
	orders.GET("/:id", d.OrderHandler.GetOrder, d.Auth.AdminOnly)
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus, d.Auth.AdminOnly)

	carts := v1.Group("/cart", d.Auth.RequireLogin)
	carts.GET("", d.CartHandler.GetCart)
	carts.POST("", d.CartHandler.AddToCart)
	carts.GET("/totals", d.CartHandler.Totals)
	carts.POST("/address", d.CartHandler.SaveAddress)
	carts.PUT("/:productID", d.CartHandler.UpdateQuantity)
	carts.DELETE("/:id", d.CartHandler.DeleteItem)
	carts.DELETE("", d.CartHandler.ClearCart)

	admin := v1.Group("/admin", d.Auth.AdminOnly)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
}

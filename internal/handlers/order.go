package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/arkocart/storefront/internal/middleware/auth"
	"github.com/arkocart/storefront/internal/service"
	"github.com/arkocart/storefront/internal/transport"
	"github.com/arkocart/storefront/internal/util"
)

type OrderHandler struct {
	Svc *service.OrderService
}

func orderError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// CreateOrder accepts guest and authenticated checkouts. The response carries
// the persisted order; notification delivery is never part of it.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var userID *uint
	if id, ok := auth.UserID(c); ok {
		userID = &id
	}

	order, err := h.Svc.CreateOrder(c.Request().Context(), req, userID)
	if err != nil {
		return orderError(err)
	}

	return c.JSON(http.StatusCreated, transport.OrderResponse{Success: true, Order: order})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), 20)
	offset, limit := util.Calculate(page, size)

	orders, err := h.Svc.Orders(c.Request().Context(), limit, offset)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) MyOrders(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	orders, err := h.Svc.OrdersForUser(c.Request().Context(), userID)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.Svc.Order(c.Request().Context(), c.Param("id"))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.UpdateStatus(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return orderError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"msg":   "Order status updated",
		"order": order,
	})
}

package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/middleware/auth"
	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/settings"
	"github.com/arkocart/storefront/internal/shipping"
)

type CartHandler struct {
	DB       *gorm.DB
	Settings *settings.Store
}

type cartItemResponse struct {
	models.CartItem
	Clamped bool `json:"clamped,omitempty"`
}

func getUserID(c echo.Context) (uint, error) {
	id, ok := auth.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return id, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// AddToCart merges quantities for an already-present product and clamps the
// result to the product's stock. An out-of-stock product cannot be added at
// all. Clamping is a cart policy: the server does not re-clamp at checkout.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if product.Stock == 0 {
		return echo.NewHTTPError(http.StatusConflict, "product out of stock")
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", userID, req.ProductID).First(&item)
	switch {
	case tx.Error == nil:
		item.Quantity += req.Quantity
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	clamped := false
	if item.Quantity > product.Stock {
		item.Quantity = product.Stock
		clamped = true
	}

	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cartItemResponse{CartItem: item, Clamped: clamped})
}

// UpdateQuantity sets the quantity for one product. Zero or below removes the
// item; above stock clamps and flags the response.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("productID"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var item models.CartItem
	if err := h.DB.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Quantity <= 0 {
		if err := h.DB.Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"deleted_item": item.ID})
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	clamped := false
	quantity := uint(req.Quantity)
	if quantity > product.Stock {
		quantity = product.Stock
		clamped = true
	}
	// Stock may have dropped to zero since the item was added.
	if quantity == 0 {
		if err := h.DB.Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"deleted_item": item.ID})
	}

	item.Quantity = quantity
	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cartItemResponse{CartItem: item, Clamped: clamped})
}

func (h *CartHandler) DeleteItem(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted_item": id})
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Where("user_id = ?", userID).Delete(&models.ShippingDraft{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SaveAddress stores the draft shipping address used by the totals
// computation until the cart is cleared.
func (h *CartHandler) SaveAddress(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var req struct {
		FullName string         `json:"full_name"`
		Phone    string         `json:"phone"`
		Address  models.Address `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	draft := models.ShippingDraft{
		UserID:   userID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	if err := h.DB.Save(&draft).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, draft)
}

type totalsResponse struct {
	Count    uint            `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	Savings  decimal.Decimal `json:"savings"`
}

// Totals derives subtotal, shipping cost, grand total and aggregate savings
// from the current cart against a settings snapshot.
func (h *CartHandler) Totals(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := totalsResponse{
		Subtotal: decimal.Zero,
		Shipping: decimal.Zero,
		Total:    decimal.Zero,
		Savings:  decimal.Zero,
	}

	for _, it := range items {
		var product models.Product
		if err := h.DB.First(&product, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		qty := decimal.NewFromInt(int64(it.Quantity))
		resp.Count += it.Quantity
		resp.Subtotal = resp.Subtotal.Add(product.Price.Mul(qty))
		if product.OldPrice.GreaterThan(product.Price) {
			resp.Savings = resp.Savings.Add(product.OldPrice.Sub(product.Price).Mul(qty))
		}
	}

	var addr *models.Address
	var draft models.ShippingDraft
	if err := h.DB.First(&draft, userID).Error; err == nil {
		addr = &draft.Address
	}

	cfg := h.Settings.Snapshot(c.Request().Context())
	resp.Shipping = shipping.Quote(resp.Subtotal, addr, cfg.Shipping)
	resp.Total = resp.Subtotal.Add(resp.Shipping)

	return c.JSON(http.StatusOK, resp)
}

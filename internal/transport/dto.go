package transport

import (
	"github.com/shopspring/decimal"

	"github.com/arkocart/storefront/internal/models"
)

type CustomerDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateOrderItem struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    uint            `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	OldPrice    decimal.Decimal `json:"old_price"`
	Image       string          `json:"image"`
}

type CreateOrderRequest struct {
	CustomerDetails CustomerDetails        `json:"customer_details"`
	CustomerPhone   string                 `json:"customer_phone"`
	Items           []CreateOrderItem      `json:"items"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	ShippingAddress models.Address         `json:"shipping_address"`
	PaymentDetails  *models.PaymentDetails `json:"payment_details,omitempty"`
}

type UpdateStatusRequest struct {
	Status       string               `json:"status"`
	ShippingInfo *models.ShippingInfo `json:"shipping_info,omitempty"`
}

type OrderResponse struct {
	Success bool          `json:"success"`
	Order   *models.Order `json:"order"`
}

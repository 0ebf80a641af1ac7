package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string          `gorm:"not null"                  json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"     json:"price"`
	OldPrice    decimal.Decimal `gorm:"type:numeric"              json:"old_price"`
	Image       string          `json:"image"`
	Stock       uint            `json:"stock"`
	Enabled     bool            `gorm:"default:true"              json:"enabled"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
)

// Address is the shipping destination captured at checkout.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// ShippingInfo is present only once an order has been shipped.
type ShippingInfo struct {
	Carrier           string `json:"carrier"`
	TrackingNumber    string `json:"tracking_number"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

type PaymentDetails struct {
	PaymentID string `json:"payment_id"`
	Provider  string `json:"provider"`
}

// Order is created once, inside the same transaction as its items, and is
// mutated only by status transitions afterwards. Customer fields are
// denormalized at creation time.
type Order struct {
	ID              string          `gorm:"primaryKey"              json:"id"`
	CustomerName    string          `gorm:"not null"                json:"customer_name"`
	CustomerEmail   string          `gorm:"not null"                json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress Address         `gorm:"serializer:json"         json:"shipping_address"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric;not null"   json:"total_amount"`
	Status          OrderStatus     `gorm:"not null"                json:"status"`
	ShippingInfo    *ShippingInfo   `gorm:"serializer:json"         json:"shipping_info,omitempty"`
	PaymentDetails  *PaymentDetails `gorm:"serializer:json"         json:"payment_details,omitempty"`
	UserID          *uint           `gorm:"index"                   json:"user_id,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots product name, image and prices at purchase time; it is
// never refreshed when the product is later edited.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey"                  json:"id"`
	OrderID     string          `gorm:"index;not null"              json:"order_id"`
	ProductID   uint            `gorm:"not null"                    json:"product_id"`
	ProductName string          `gorm:"not null"                    json:"product_name"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `gorm:"type:numeric;not null"       json:"price"`
	OldPrice    decimal.Decimal `gorm:"type:numeric"                json:"old_price"`
	Quantity    uint            `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// ShippingDraft holds one user's checkout address between sessions, until the
// cart is cleared.
type ShippingDraft struct {
	UserID   uint    `gorm:"primaryKey"      json:"user_id"`
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	Address  Address `gorm:"serializer:json" json:"address"`
}

// Setting is the single-row settings aggregate. This module only ever reads it.
type Setting struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Data []byte `gorm:"type:jsonb" json:"data"`
}

// WhatsappMessageLog records the outcome of every notification attempt,
// successful or not.
type WhatsappMessageLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RecipientNumber string    `json:"recipient_number"`
	MessageContent  string    `json:"message_content"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason"`
	OrderID         string    `gorm:"index"      json:"order_id"`
	UserID          *uint     `json:"user_id,omitempty"`
	MessageType     string    `json:"message_type"`
	CreatedAt       time.Time `json:"created_at"`
}

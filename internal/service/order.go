package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/events"
	"github.com/arkocart/storefront/internal/logging"
	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/notify"
	"github.com/arkocart/storefront/internal/orderflow"
	"github.com/arkocart/storefront/internal/repo"
	"github.com/arkocart/storefront/internal/settings"
	"github.com/arkocart/storefront/internal/shipping"
	"github.com/arkocart/storefront/internal/transport"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
)

type OrderService struct {
	Repo     *repo.OrderRepo
	Settings *settings.Store
	Notifier *notify.Dispatcher
	Events   *events.Producer
}

// NewOrderID builds an externally visible order id. The timestamp keeps ids
// roughly sortable, the uuid fragment removes the collision window of a
// purely timestamp-derived id under concurrent checkouts.
func NewOrderID() string {
	return fmt.Sprintf("ORD-%d-%.8s", time.Now().UnixMilli(), uuid.NewString())
}

// CreateOrder validates the checkout payload, verifies the submitted total
// against the pricing rules and persists the order atomically. Notification
// and event publishing happen after commit and never affect the result.
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, userID *uint) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if req.CustomerDetails.Name == "" || req.CustomerDetails.Email == "" {
		return nil, fmt.Errorf("%w: customer name and email required", ErrValidation)
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))

	for i := range req.Items {
		if req.Items[i].ProductID == 0 {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if req.Items[i].Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		if req.Items[i].Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}

		subtotal = subtotal.Add(req.Items[i].Price.Mul(decimal.NewFromInt(int64(req.Items[i].Quantity))))

		items = append(items, models.OrderItem{
			ProductID:   req.Items[i].ProductID,
			ProductName: req.Items[i].ProductName,
			Image:       req.Items[i].Image,
			Price:       req.Items[i].Price,
			OldPrice:    req.Items[i].OldPrice,
			Quantity:    req.Items[i].Quantity,
		})
	}

	cfg := s.Settings.Snapshot(ctx)
	want := shipping.Total(subtotal, &req.ShippingAddress, cfg.Shipping)
	if !req.TotalAmount.Equal(want) {
		return nil, fmt.Errorf("%w: total amount mismatch: got %s, want %s", ErrValidation, req.TotalAmount, want)
	}

	order := &models.Order{
		ID:              NewOrderID(),
		CustomerName:    req.CustomerDetails.Name,
		CustomerEmail:   req.CustomerDetails.Email,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		TotalAmount:     req.TotalAmount,
		Status:          models.StatusPending,
		PaymentDetails:  req.PaymentDetails,
		UserID:          userID,
		Items:           items,
	}

	if err := s.Repo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.Notifier.NewOrderAsync(*order)
	s.publish(ctx, "order_created", order.ID, map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"total":    order.TotalAmount,
		"items":    len(order.Items),
	})

	return order, nil
}

// UpdateStatus applies one transition of the order status state machine and,
// when the target status has a configured template, triggers the customer
// notification after the write.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, req transport.UpdateStatusRequest) (*models.Order, error) {
	status := models.OrderStatus(req.Status)
	rule, ok := orderflow.RuleFor(status)
	if !ok {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, req.Status)
	}

	// Shipping info travels with the Shipped transition only. Anything
	// supplied alongside other transitions is dropped, not persisted.
	info := req.ShippingInfo
	if rule.RequiresShippingInfo {
		if info == nil || info.Carrier == "" || info.TrackingNumber == "" || info.EstimatedDelivery == "" {
			return nil, fmt.Errorf("%w: carrier, tracking number and estimated delivery are required for %s", ErrValidation, status)
		}
	} else {
		info = nil
	}

	order, err := s.Repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}

	if !rule.From[order.Status] {
		return nil, fmt.Errorf("%w: cannot transition from %s to %s", ErrValidation, order.Status, status)
	}

	rows, err := s.Repo.UpdateStatus(ctx, id, status, info)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}

	order.Status = status
	if info != nil {
		order.ShippingInfo = info
	}

	s.Notifier.StatusChangedAsync(*order, status)
	s.publish(ctx, "order_status_changed", order.ID, map[string]any{
		"type":     "order_status_changed",
		"order_id": order.ID,
		"status":   status,
	})

	return order, nil
}

func (s *OrderService) Order(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.Repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) Orders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	return s.Repo.All(ctx, limit, offset)
}

func (s *OrderService) OrdersForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ByUser(ctx, userID)
}

// publish is fire-and-forget: broker trouble is logged, never surfaced.
func (s *OrderService) publish(ctx context.Context, topicKey, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "event", topicKey, "error", err)
	}
}

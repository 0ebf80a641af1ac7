package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/orderflow"
	"github.com/arkocart/storefront/internal/settings"
)

const dispatchTimeout = 30 * time.Second

// Dispatcher builds and delivers order notifications. Every failure inside it
// is absorbed and logged: a notification must never fail or delay the order
// operation that triggered it.
type Dispatcher struct {
	DB       *gorm.DB
	Settings *settings.Store
	Log      *slog.Logger

	// NewProvider overrides provider selection, for tests. Nil uses the
	// configured provider.
	NewProvider func(ns settings.WhatsappSettings) Provider

	wg sync.WaitGroup
}

// NewOrderAsync dispatches new-order notifications on a detached goroutine.
// Called after the order transaction has committed.
func (d *Dispatcher) NewOrderAsync(order models.Order) {
	d.run(func(ctx context.Context) {
		d.SendNewOrder(ctx, order)
	})
}

// StatusChangedAsync dispatches a status-update notification on a detached
// goroutine. Called after the status update has been persisted.
func (d *Dispatcher) StatusChangedAsync(order models.Order, status models.OrderStatus) {
	d.run(func(ctx context.Context) {
		d.SendStatusUpdate(ctx, order, status)
	})
}

// Wait blocks until in-flight dispatches finish. Used on shutdown and in
// tests; request handlers never call it.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.Log.Error("notification dispatch panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// SendNewOrder notifies the customer and the configured admin number about a
// freshly created order.
func (d *Dispatcher) SendNewOrder(ctx context.Context, order models.Order) {
	ns := d.Settings.Snapshot(ctx).WhatsappNotifications
	if !ns.EnableOrderNotifications {
		d.Log.Info("skipping whatsapp notification", "reason", "notifications disabled in settings")
		return
	}

	values := map[string]string{
		PlaceholderOrderID:      order.ID,
		PlaceholderCustomerName: order.CustomerName,
		PlaceholderTotalAmount:  order.TotalAmount.String(),
	}

	if order.CustomerPhone != "" && ns.CustomerNewOrderTemplateName != "" {
		params := BuildTemplateParams(ns.CustomerNewOrderTemplateParams, values)
		d.deliver(ctx, ns, order, outgoing{
			to:          order.CustomerPhone,
			template:    ns.CustomerNewOrderTemplateName,
			params:      params,
			messageType: "new_order_customer",
		})
	}

	if ns.AdminPhoneNumber != "" && ns.AdminNewOrderTemplateName != "" {
		params := BuildTemplateParams(ns.AdminNewOrderTemplateParams, values)
		d.deliver(ctx, ns, order, outgoing{
			to:          ns.AdminPhoneNumber,
			template:    ns.AdminNewOrderTemplateName,
			params:      params,
			messageType: "new_order_admin",
		})
	}
}

// SendStatusUpdate notifies the customer about a status transition. Statuses
// without a configured template are silently skipped.
func (d *Dispatcher) SendStatusUpdate(ctx context.Context, order models.Order, status models.OrderStatus) {
	ns := d.Settings.Snapshot(ctx).WhatsappNotifications
	if !ns.EnableOrderNotifications {
		d.Log.Info("skipping whatsapp notification", "reason", "notifications disabled in settings")
		return
	}

	rule, ok := orderflow.RuleFor(status)
	if !ok {
		return
	}
	template, mapping := rule.Template(ns)
	if template == "" {
		d.Log.Warn("template name missing in settings for status", "status", status)
		return
	}

	carrier, tracking, eta := "our courier partner", "N/A", "N/A"
	if order.ShippingInfo != nil {
		if order.ShippingInfo.Carrier != "" {
			carrier = order.ShippingInfo.Carrier
		}
		if order.ShippingInfo.TrackingNumber != "" {
			tracking = order.ShippingInfo.TrackingNumber
		}
		if order.ShippingInfo.EstimatedDelivery != "" {
			eta = order.ShippingInfo.EstimatedDelivery
		}
	}

	values := map[string]string{
		PlaceholderOrderID:        order.ID,
		PlaceholderCustomerName:   order.CustomerName,
		PlaceholderTotalAmount:    order.TotalAmount.String(),
		PlaceholderCarrier:        carrier,
		PlaceholderTrackingNumber: tracking,
		PlaceholderEstimatedDate:  eta,
	}

	d.deliver(ctx, ns, order, outgoing{
		to:          order.CustomerPhone,
		template:    template,
		params:      BuildTemplateParams(mapping, values),
		messageType: "status_update_" + string(status),
	})
}

type outgoing struct {
	to          string
	template    string
	params      []string
	messageType string
}

func (d *Dispatcher) deliver(ctx context.Context, ns settings.WhatsappSettings, order models.Order, msg outgoing) {
	var err error
	switch {
	case msg.to == "":
		err = fmt.Errorf("recipient phone number is missing")
	default:
		provider := d.provider(ns)
		if provider == nil {
			err = fmt.Errorf("provider %q is none or not supported", ns.APIProvider)
		} else {
			err = provider.Send(ctx, Message{To: msg.to, Template: msg.template, Params: msg.params})
		}
	}

	status, reason := "success", "sent"
	if err != nil {
		status, reason = "failed", err.Error()
		d.Log.Warn("whatsapp notification failed",
			"order_id", order.ID,
			"message_type", msg.messageType,
			"reason", reason,
		)
	}
	d.record(ctx, order, msg, status, reason)
}

func (d *Dispatcher) provider(ns settings.WhatsappSettings) Provider {
	if d.NewProvider != nil {
		return d.NewProvider(ns)
	}
	return providerFor(ns, d.Log)
}

// record writes the delivery outcome. Logging the attempt must itself never
// fail the dispatch.
func (d *Dispatcher) record(ctx context.Context, order models.Order, msg outgoing, status, reason string) {
	if d.DB == nil {
		return
	}

	content, _ := json.Marshal(map[string]any{
		"template": msg.template,
		"params":   msg.params,
	})

	row := models.WhatsappMessageLog{
		RecipientNumber: msg.to,
		MessageContent:  string(content),
		Status:          status,
		Reason:          reason,
		OrderID:         order.ID,
		UserID:          order.UserID,
		MessageType:     msg.messageType,
	}
	if err := d.DB.WithContext(ctx).Create(&row).Error; err != nil {
		d.Log.Error("failed to record whatsapp message log", "error", err)
	}
}

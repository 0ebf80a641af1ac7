package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/notify"
	"github.com/arkocart/storefront/internal/repo"
	"github.com/arkocart/storefront/internal/settings"
	"github.com/arkocart/storefront/internal/transport"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type testEnv struct {
	DB       *gorm.DB
	Svc      *OrderService
	Provider *stubProvider
}

type stubProvider struct {
	sent []notify.Message
	err  error
}

func (p *stubProvider) Send(_ context.Context, msg notify.Message) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.CartItem{},
		&models.ShippingDraft{},
		&models.Order{},
		&models.OrderItem{},
		&models.Setting{},
		&models.WhatsappMessageLog{},
	))

	store := &settings.Store{DB: db}
	provider := &stubProvider{}
	dispatcher := &notify.Dispatcher{
		DB:       db,
		Settings: store,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewProvider: func(settings.WhatsappSettings) notify.Provider {
			return provider
		},
	}

	env := &testEnv{
		DB:       db,
		Provider: provider,
		Svc: &OrderService{
			Repo:     &repo.OrderRepo{DB: db},
			Settings: store,
			Notifier: dispatcher,
		},
	}

	env.seedSettings(t, settings.Settings{
		Shipping: settings.ShippingSettings{
			FlatRateEnabled: true,
			FlatRateCost:    d("50"),
		},
		WhatsappNotifications: settings.WhatsappSettings{
			EnableOrderNotifications:       true,
			APIProvider:                    "mock_server",
			CustomerNewOrderTemplateName:   "new_order",
			CustomerNewOrderTemplateParams: "[CUSTOMER_NAME],[ORDER_ID]",
			CustomerShippedTemplateName:    "shipped",
			CustomerShippedTemplateParams:  "[ORDER_ID],[TRACKING_NUMBER]",
			CustomerCancelledTemplateName:  "cancelled",
		},
	})

	return env
}

func (env *testEnv) seedSettings(t *testing.T, s settings.Settings) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, env.DB.Save(&models.Setting{ID: 1, Data: data}).Error)
}

func checkoutRequest() transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		CustomerDetails: transport.CustomerDetails{Name: "Asha", Email: "asha@example.com"},
		CustomerPhone:   "919876543210",
		Items: []transport.CreateOrderItem{
			{ProductID: 1, ProductName: "Handloom Stole", Quantity: 1, Price: d("1499")},
			{ProductID: 2, ProductName: "Brass Lamp", Quantity: 1, Price: d("2499")},
		},
		TotalAmount:     d("4048"), // 3998 subtotal + 50 flat rate
		ShippingAddress: models.Address{Street: "12 MG Road", City: "Pune", State: "MH", Zip: "411001"},
	}
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)

	require.NotEmpty(t, order.ID)
	assert.Contains(t, order.ID, "ORD-")
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.GreaterThanOrEqual(d("3998")))
	require.Len(t, order.Items, 2)

	fetched, err := env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 2)
	assert.Equal(t, "Handloom Stole", fetched.Items[0].ProductName)
	assert.True(t, fetched.TotalAmount.Equal(d("4048")))

	// fetching again without mutation returns identical data
	again, err := env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fetched.ID, again.ID)
	assert.Equal(t, fetched.Status, again.Status)
	assert.True(t, fetched.TotalAmount.Equal(again.TotalAmount))
	assert.Equal(t, len(fetched.Items), len(again.Items))
}

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*transport.CreateOrderRequest)
	}{
		{name: "no items", mutate: func(r *transport.CreateOrderRequest) { r.Items = nil }},
		{name: "missing customer name", mutate: func(r *transport.CreateOrderRequest) { r.CustomerDetails.Name = "" }},
		{name: "zero quantity", mutate: func(r *transport.CreateOrderRequest) { r.Items[0].Quantity = 0 }},
		{name: "negative price", mutate: func(r *transport.CreateOrderRequest) { r.Items[0].Price = d("-1") }},
		{name: "total mismatch", mutate: func(r *transport.CreateOrderRequest) { r.TotalAmount = d("3998") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkoutRequest()
			tt.mutate(&req)
			_, err := env.Svc.CreateOrder(ctx, req, nil)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrder_RollbackLeavesNoRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Force the second item insert to fail with a primary key conflict
	// after the header insert has already succeeded.
	userID := uint(7)
	order := &models.Order{
		ID:            NewOrderID(),
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		TotalAmount:   d("100"),
		Status:        models.StatusPending,
		UserID:        &userID,
		Items: []models.OrderItem{
			{ID: 1, ProductID: 1, ProductName: "ok", Price: d("50"), Quantity: 1},
			{ID: 1, ProductID: 2, ProductName: "dup", Price: d("50"), Quantity: 1},
		},
	}

	err := env.Svc.Repo.Create(ctx, order)
	require.Error(t, err)

	// the caller's order is left intact, items included
	require.Len(t, order.Items, 2)

	var orders, items int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, env.DB.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)
}

func TestCreateOrder_ClearsCartInSameTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := uint(3)
	require.NoError(t, env.DB.Create(&models.CartItem{UserID: userID, ProductID: 1, Quantity: 2}).Error)
	require.NoError(t, env.DB.Save(&models.ShippingDraft{UserID: userID, FullName: "Asha"}).Error)

	_, err := env.Svc.CreateOrder(ctx, checkoutRequest(), &userID)
	require.NoError(t, err)

	var cartCount, draftCount int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&cartCount).Error)
	require.NoError(t, env.DB.Model(&models.ShippingDraft{}).Where("user_id = ?", userID).Count(&draftCount).Error)
	assert.Zero(t, cartCount)
	assert.Zero(t, draftCount)
}

func TestCreateOrder_NotificationFailureDoesNotAffectResult(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.Provider.err = errors.New("provider unreachable")

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, models.StatusPending, order.Status)

	env.Svc.Notifier.Wait()

	// order persisted despite the failed notification
	fetched, err := env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 2)

	var logs []models.WhatsappMessageLog
	require.NoError(t, env.DB.Find(&logs).Error)
	require.NotEmpty(t, logs)
	assert.Equal(t, "failed", logs[0].Status)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)
	env.Svc.Notifier.Wait()

	// Pending -> Shipped skips Processing and is rejected
	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{
		Status: "Shipped",
		ShippingInfo: &models.ShippingInfo{
			Carrier: "BlueDart", TrackingNumber: "BD1", EstimatedDelivery: "2026-09-05",
		},
	})
	require.ErrorIs(t, err, ErrValidation)

	updated, err := env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Processing"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, updated.Status)

	// Shipped without shipping info is rejected before any write
	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Shipped"})
	require.ErrorIs(t, err, ErrValidation)
	current, err := env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, current.Status)

	// with all three fields, status and shipping info update together
	updated, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{
		Status: "Shipped",
		ShippingInfo: &models.ShippingInfo{
			Carrier: "BlueDart", TrackingNumber: "BD1", EstimatedDelivery: "2026-09-05",
		},
	})
	require.NoError(t, err)
	env.Svc.Notifier.Wait()

	current, err = env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, current.Status)
	require.NotNil(t, current.ShippingInfo)
	assert.Equal(t, "BlueDart", current.ShippingInfo.Carrier)
	assert.Equal(t, "BD1", current.ShippingInfo.TrackingNumber)

	// Delivered is terminal
	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Delivered"})
	require.NoError(t, err)
	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Cancelled"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_InvalidTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)
	env.Svc.Notifier.Wait()

	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Pending"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Teleported"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Svc.UpdateStatus(context.Background(), "ORD-missing", transport.UpdateStatusRequest{Status: "Processing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_CancelFromPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)

	updated, err := env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{Status: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	env.Svc.Notifier.Wait()
}

func TestUpdateStatus_ShippingInfoOnlyPersistedForShipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.Svc.CreateOrder(ctx, checkoutRequest(), nil)
	require.NoError(t, err)
	env.Svc.Notifier.Wait()

	// shipping info supplied on a non-Shipped transition is dropped
	updated, err := env.Svc.UpdateStatus(ctx, order.ID, transport.UpdateStatusRequest{
		Status: "Cancelled",
		ShippingInfo: &models.ShippingInfo{
			Carrier: "BlueDart", TrackingNumber: "BD1", EstimatedDelivery: "2026-09-05",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Nil(t, updated.ShippingInfo)

	current, err := env.Svc.Order(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, current.ShippingInfo)
	env.Svc.Notifier.Wait()
}

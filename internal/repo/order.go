package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/models"
)

type OrderRepo struct {
	DB *gorm.DB
}

// Create persists the order header and its line items in one transaction.
// Any failure rolls back the whole sequence: a partial order is never
// observable. When the order belongs to a user, that user's cart and shipping
// draft are cleared inside the same transaction.
func (r *OrderRepo) Create(ctx context.Context, order *models.Order) error {
	items := order.Items
	order.Items = nil
	defer func() { order.Items = items }()

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.Create(&items[i]).Error; err != nil {
				return err
			}
		}
		if order.UserID != nil {
			if err := tx.Where("user_id = ?", *order.UserID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", *order.UserID).Delete(&models.ShippingDraft{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrderRepo) ByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) All(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) ByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus writes the new status, and the shipping info when supplied, in
// a single update. Returns the number of affected rows so callers can
// distinguish a missing order. Last writer wins on concurrent updates.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, info *models.ShippingInfo) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(models.Order{Status: status, ShippingInfo: info})
	return res.RowsAffected, res.Error
}

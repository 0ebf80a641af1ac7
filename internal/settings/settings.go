package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/arkocart/storefront/internal/logging"
	"github.com/arkocart/storefront/internal/models"
)

// ShippingSettings drives the shipping-cost rules. All fields are optional; a
// zero value means every rule is disabled and shipping degrades to free.
type ShippingSettings struct {
	FlatRateEnabled            bool            `json:"flatRateEnabled"`
	FlatRateCost               decimal.Decimal `json:"flatRateCost"`
	FreeShippingEnabled        bool            `json:"freeShippingEnabled"`
	FreeShippingThreshold      decimal.Decimal `json:"freeShippingThreshold"`
	PincodeFreeShippingEnabled bool            `json:"pincodeFreeShippingEnabled"`
	FreeShippingPincodes       string          `json:"freeShippingPincodes"`
}

// WhatsappSettings configures the notification dispatcher. Template params are
// comma-separated ordered placeholder lists, e.g. "[CUSTOMER_NAME],[ORDER_ID]".
type WhatsappSettings struct {
	EnableOrderNotifications bool   `json:"enableOrderNotifications"`
	APIProvider              string `json:"apiProvider"`
	WhatsappToken            string `json:"whatsappToken"`
	WhatsappPhoneID          string `json:"whatsappPhoneId"`
	WhatsappVersion          string `json:"whatsappVersion"`
	AdminPhoneNumber         string `json:"adminPhoneNumber"`

	CustomerNewOrderTemplateName   string `json:"customerNewOrderTemplateName"`
	CustomerNewOrderTemplateParams string `json:"customerNewOrderTemplateParams"`
	AdminNewOrderTemplateName      string `json:"adminNewOrderTemplateName"`
	AdminNewOrderTemplateParams    string `json:"adminNewOrderTemplateParams"`

	CustomerProcessingTemplateName   string `json:"customerProcessingTemplateName"`
	CustomerProcessingTemplateParams string `json:"customerProcessingTemplateParams"`
	CustomerShippedTemplateName      string `json:"customerShippedTemplateName"`
	CustomerShippedTemplateParams    string `json:"customerShippedTemplateParams"`
	CustomerDeliveredTemplateName    string `json:"customerDeliveredTemplateName"`
	CustomerDeliveredTemplateParams  string `json:"customerDeliveredTemplateParams"`
	CustomerCancelledTemplateName    string `json:"customerCancelledTemplateName"`
	CustomerCancelledTemplateParams  string `json:"customerCancelledTemplateParams"`
}

// Settings is the slice of the global settings aggregate this module reads.
type Settings struct {
	Shipping              ShippingSettings `json:"shipping"`
	WhatsappNotifications WhatsappSettings `json:"whatsappNotifications"`
}

// Store reads the single settings row. Missing or malformed settings degrade
// to the zero value: free shipping, notifications disabled.
type Store struct {
	DB *gorm.DB
}

func (s *Store) Snapshot(ctx context.Context) Settings {
	var row models.Setting
	if err := s.DB.WithContext(ctx).First(&row, 1).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logging.FromContext(ctx).Error("settings read failed", "error", err)
		}
		return Settings{}
	}

	var out Settings
	if err := json.Unmarshal(row.Data, &out); err != nil {
		logging.FromContext(ctx).Error("settings unmarshal failed", "error", err)
		return Settings{}
	}
	return out
}

package shipping

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/settings"
)

// Quote computes the shipping cost for a cart subtotal against the configured
// rules, first match wins:
//
//  1. empty cart ships for free
//  2. pincode-based free shipping
//  3. threshold-based free shipping
//  4. flat rate
//  5. nothing configured defaults to free
//
// A malformed or absent configuration never fails, it degrades to free.
func Quote(subtotal decimal.Decimal, addr *models.Address, cfg settings.ShippingSettings) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}

	if cfg.PincodeFreeShippingEnabled && addr != nil && pincodeMatch(cfg.FreeShippingPincodes, addr.Zip) {
		return decimal.Zero
	}

	if cfg.FreeShippingEnabled && subtotal.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		return decimal.Zero
	}

	if cfg.FlatRateEnabled {
		return cfg.FlatRateCost
	}

	return decimal.Zero
}

// Total is subtotal plus shipping. No rounding beyond the stored precision.
func Total(subtotal decimal.Decimal, addr *models.Address, cfg settings.ShippingSettings) decimal.Decimal {
	return subtotal.Add(Quote(subtotal, addr, cfg))
}

func pincodeMatch(configured, zip string) bool {
	zip = strings.TrimSpace(zip)
	if zip == "" {
		return false
	}
	for _, p := range strings.Split(configured, ",") {
		if p = strings.TrimSpace(p); p != "" && p == zip {
			return true
		}
	}
	return false
}

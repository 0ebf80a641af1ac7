package orderflow

import (
	"github.com/arkocart/storefront/internal/models"
	"github.com/arkocart/storefront/internal/settings"
)

// Rule describes one legal target status: the statuses it may follow, the
// payload it requires, and the customer notification template wired to it.
// Both the transition validator and the notification dispatcher consult the
// same table, so the two can never disagree.
type Rule struct {
	From                 map[models.OrderStatus]bool
	RequiresShippingInfo bool
	Template             func(ns settings.WhatsappSettings) (name, params string)
}

var rules = map[models.OrderStatus]Rule{
	models.StatusProcessing: {
		From: statuses(models.StatusPending),
		Template: func(ns settings.WhatsappSettings) (string, string) {
			return ns.CustomerProcessingTemplateName, ns.CustomerProcessingTemplateParams
		},
	},
	models.StatusShipped: {
		From:                 statuses(models.StatusProcessing),
		RequiresShippingInfo: true,
		Template: func(ns settings.WhatsappSettings) (string, string) {
			return ns.CustomerShippedTemplateName, ns.CustomerShippedTemplateParams
		},
	},
	models.StatusDelivered: {
		From: statuses(models.StatusShipped),
		Template: func(ns settings.WhatsappSettings) (string, string) {
			return ns.CustomerDeliveredTemplateName, ns.CustomerDeliveredTemplateParams
		},
	},
	models.StatusCancelled: {
		From: statuses(models.StatusPending, models.StatusProcessing, models.StatusShipped),
		Template: func(ns settings.WhatsappSettings) (string, string) {
			return ns.CustomerCancelledTemplateName, ns.CustomerCancelledTemplateParams
		},
	},
}

// RuleFor reports the transition rule for a target status. Pending and
// unrecognized statuses are not legal targets and have no rule.
func RuleFor(status models.OrderStatus) (Rule, bool) {
	r, ok := rules[status]
	return r, ok
}

func statuses(ss ...models.OrderStatus) map[models.OrderStatus]bool {
	out := make(map[models.OrderStatus]bool, len(ss))
	for _, s := range ss {
		out[s] = true
	}
	return out
}

package notify

import "strings"

// Placeholder keys usable in template parameter mappings from settings.
const (
	PlaceholderOrderID        = "[ORDER_ID]"
	PlaceholderCustomerName   = "[CUSTOMER_NAME]"
	PlaceholderTotalAmount    = "[TOTAL_AMOUNT]"
	PlaceholderCarrier        = "[CARRIER]"
	PlaceholderTrackingNumber = "[TRACKING_NUMBER]"
	PlaceholderEstimatedDate  = "[ESTIMATED_DELIVERY]"
)

// BuildTemplateParams turns a comma-separated placeholder mapping into the
// ordered parameter values a template expects. Entries are trimmed and empty
// entries dropped. An unmapped placeholder becomes a single space: the
// downstream provider rejects empty parameter fields, so a blank value is the
// deliberate fallback.
func BuildTemplateParams(mapping string, values map[string]string) []string {
	if strings.TrimSpace(mapping) == "" {
		return nil
	}

	var out []string
	for _, key := range strings.Split(mapping, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		v, ok := values[key]
		if !ok || v == "" {
			v = " "
		}
		out = append(out, v)
	}
	return out
}

// FormatPhone normalizes a number for the provider API: strips spaces and
// plus signs and prefixes the country code 91 when missing. Returns "" for an
// empty input.
func FormatPhone(number string) string {
	cleaned := strings.ReplaceAll(number, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "+", "")
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "91") {
		return cleaned
	}
	return "91" + cleaned
}

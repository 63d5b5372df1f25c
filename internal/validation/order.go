package validation

import "strings"

const maxOrderIDLength = 255

// ValidateOrderID checks a processor order identifier.
func ValidateOrderID(orderID string) []FieldError {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return []FieldError{{Field: "orderId", Reason: ReasonRequired}}
	}
	if len(orderID) > maxOrderIDLength {
		return []FieldError{{Field: "orderId", Reason: ReasonTooLong}}
	}
	return nil
}

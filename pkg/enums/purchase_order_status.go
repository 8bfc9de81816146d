package enums

import (
	"fmt"
	"strings"
)

// PurchaseOrderStatus is the fulfillment state of one supplier's share of an order.
// Stored values keep the caller's literal; Normalize collapses aliases for transition checks.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusCreated        PurchaseOrderStatus = "CREATED"
	PurchaseOrderStatusPending        PurchaseOrderStatus = "PENDING"
	PurchaseOrderStatusFunded         PurchaseOrderStatus = "FUNDED"
	PurchaseOrderStatusProcessing     PurchaseOrderStatus = "PROCESSING"
	PurchaseOrderStatusConfirmed      PurchaseOrderStatus = "CONFIRMED"
	PurchaseOrderStatusPacked         PurchaseOrderStatus = "PACKED"
	PurchaseOrderStatusShipped        PurchaseOrderStatus = "SHIPPED"
	PurchaseOrderStatusOutForDelivery PurchaseOrderStatus = "OUT_FOR_DELIVERY"
	PurchaseOrderStatusDelivered      PurchaseOrderStatus = "DELIVERED"
	PurchaseOrderStatusCanceled       PurchaseOrderStatus = "CANCELED"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusCreated,
	PurchaseOrderStatusPending,
	PurchaseOrderStatusFunded,
	PurchaseOrderStatusProcessing,
	PurchaseOrderStatusConfirmed,
	PurchaseOrderStatusPacked,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusOutForDelivery,
	PurchaseOrderStatusDelivered,
	PurchaseOrderStatusCanceled,
}

// PurchaseOrderFlow is the ordered forward path; each step may only advance by one.
var PurchaseOrderFlow = []PurchaseOrderStatus{
	PurchaseOrderStatusPending,
	PurchaseOrderStatusConfirmed,
	PurchaseOrderStatusPacked,
	PurchaseOrderStatusShipped,
	PurchaseOrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PurchaseOrderStatus.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Normalize maps pre-fulfillment aliases to PENDING and OUT_FOR_DELIVERY to SHIPPED.
func (s PurchaseOrderStatus) Normalize() PurchaseOrderStatus {
	switch s {
	case PurchaseOrderStatusCreated, PurchaseOrderStatusFunded, PurchaseOrderStatusProcessing:
		return PurchaseOrderStatusPending
	case PurchaseOrderStatusOutForDelivery:
		return PurchaseOrderStatusShipped
	default:
		return s
	}
}

// IsTerminal reports whether no further transition is possible.
func (s PurchaseOrderStatus) IsTerminal() bool {
	n := s.Normalize()
	return n == PurchaseOrderStatusDelivered || n == PurchaseOrderStatusCanceled
}

// InTransit reports whether the shipment has left the supplier.
func (s PurchaseOrderStatus) InTransit() bool {
	return s.Normalize() == PurchaseOrderStatusShipped
}

// ParsePurchaseOrderStatus accepts any case and the CANCELLED spelling.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	raw := strings.ToUpper(strings.TrimSpace(value))
	if raw == "CANCELLED" {
		return PurchaseOrderStatusCanceled, nil
	}
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == raw {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}

package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatusChanged is emitted on every applied purchase order transition.
type PurchaseOrderStatusChanged struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OrderID         uuid.UUID `json:"order_id"`
	SupplierID      uuid.UUID `json:"supplier_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Reason          *string   `json:"reason,omitempty"`
	ChangedAt       time.Time `json:"changed_at"`
}

// RiderAssigned is emitted when a supplier hands a purchase order to a rider.
type RiderAssigned struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OrderID         uuid.UUID `json:"order_id"`
	RiderID         uuid.UUID `json:"rider_id"`
}

// RefundRequested carries the refund breakdown for a canceled purchase order.
type RefundRequested struct {
	RefundRequestID uuid.UUID       `json:"refund_request_id"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	OrderID         uuid.UUID       `json:"order_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// SupplierPayoutReleased reports a credited allocation.
type SupplierPayoutReleased struct {
	AllocationID    uuid.UUID       `json:"allocation_id"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	SupplierID      uuid.UUID       `json:"supplier_id"`
	LedgerEntryID   uuid.UUID       `json:"ledger_entry_id"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
}

// DeliveryOTPIssued never carries the code itself.
type DeliveryOTPIssued struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OrderID         uuid.UUID `json:"order_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	Channels        []string  `json:"channels"`
}

// DeliveryOTPVerified is emitted when a delivery code confirms receipt.
type DeliveryOTPVerified struct {
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	OrderID         uuid.UUID `json:"order_id"`
	VerifiedBy      uuid.UUID `json:"verified_by"`
	VerifiedAt      time.Time `json:"verified_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// PurchaseOrder is one supplier's share of an Order. Status keeps the literal
// value the caller supplied; use Status.Normalize() for flow decisions.
type PurchaseOrder struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_purchase_orders_order_supplier"`
	SupplierID       uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_purchase_orders_order_supplier"`
	Status           enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PayoutStatus     enums.PayoutStatus        `gorm:"column:payout_status;type:text;not null;default:'PENDING'"`
	RiderID          *uuid.UUID                `gorm:"column:rider_id;type:uuid"`
	Subtotal         decimal.Decimal           `gorm:"column:subtotal;type:numeric(14,2);not null;default:0"`
	SupplierAmount   decimal.Decimal           `gorm:"column:supplier_amount;type:numeric(14,2);not null;default:0"`
	PlatformFee      decimal.Decimal           `gorm:"column:platform_fee;type:numeric(14,2);not null;default:0"`
	CancelReason     *string                   `gorm:"column:cancel_reason"`
	CanceledByUserID *uuid.UUID                `gorm:"column:canceled_by_user_id;type:uuid"`
	ConfirmedAt      *time.Time                `gorm:"column:confirmed_at"`
	PackedAt         *time.Time                `gorm:"column:packed_at"`
	ShippedAt        *time.Time                `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time                `gorm:"column:delivered_at"`
	CanceledAt       *time.Time                `gorm:"column:canceled_at"`
	PaidOutAt        *time.Time                `gorm:"column:paid_out_at"`
	RiderAssignedAt  *time.Time                `gorm:"column:rider_assigned_at"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// PurchaseOrderDeliveryOtp holds the salted hash of the current delivery code.
// At most one unconsumed row exists per purchase order; re-requests overwrite it.
type PurchaseOrderDeliveryOtp struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID   uuid.UUID  `gorm:"column:purchase_order_id;type:uuid;not null"`
	CodeHash          string     `gorm:"column:code_hash;not null"`
	Salt              string     `gorm:"column:salt;not null"`
	ExpiresAt         time.Time  `gorm:"column:expires_at;not null"`
	Attempts          int        `gorm:"column:attempts;not null;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	VerifiedAt        *time.Time `gorm:"column:verified_at"`
	ConsumedAt        *time.Time `gorm:"column:consumed_at"`
	DeliveredAt       *time.Time `gorm:"column:delivered_at"`
	VerifiedByUserID  *uuid.UUID `gorm:"column:verified_by_user_id;type:uuid"`
	RequestedByUserID uuid.UUID  `gorm:"column:requested_by_user_id;type:uuid;not null"`
	DeliveryPhone     *string    `gorm:"column:delivery_phone"`
	DeliveryEmail     *string    `gorm:"column:delivery_email"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name; gorm would otherwise pluralize to "..._otps".
func (PurchaseOrderDeliveryOtp) TableName() string {
	return "purchase_order_delivery_otps"
}

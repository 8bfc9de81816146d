package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Payment is a settlement attempt against an Order.
type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Status    enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	PaidAt    *time.Time          `gorm:"column:paid_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// SupplierPaymentAllocation is the share of a Payment held for one purchase order.
// It leaves PENDING for PAID exactly once.
type SupplierPaymentAllocation struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID       uuid.UUID              `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:ux_allocations_payment_po_supplier"`
	PurchaseOrderID uuid.UUID              `gorm:"column:purchase_order_id;type:uuid;not null;uniqueIndex:ux_allocations_payment_po_supplier"`
	SupplierID      uuid.UUID              `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_allocations_payment_po_supplier"`
	Amount          decimal.Decimal        `gorm:"column:amount;type:numeric(14,2);not null"`
	Status          enums.AllocationStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ReleasedAt      *time.Time             `gorm:"column:released_at"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

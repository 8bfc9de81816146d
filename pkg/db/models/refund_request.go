package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// RefundRequest carries the itemized refund owed for one canceled purchase order.
type RefundRequest struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID      uuid.UUID          `gorm:"column:purchase_order_id;type:uuid;not null;uniqueIndex:ux_refund_requests_purchase_order"`
	OrderID              uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	SupplierID           uuid.UUID          `gorm:"column:supplier_id;type:uuid;not null"`
	Status               enums.RefundStatus `gorm:"column:status;type:text;not null;default:'REQUESTED'"`
	Reason               *string            `gorm:"column:reason"`
	ItemsAmount          decimal.Decimal    `gorm:"column:items_amount;type:numeric(14,2);not null"`
	TaxAmount            decimal.Decimal    `gorm:"column:tax_amount;type:numeric(14,2);not null"`
	ServiceBaseAmount    decimal.Decimal    `gorm:"column:service_base_amount;type:numeric(14,2);not null"`
	ServiceCommsAmount   decimal.Decimal    `gorm:"column:service_comms_amount;type:numeric(14,2);not null"`
	ServiceGatewayAmount decimal.Decimal    `gorm:"column:service_gateway_amount;type:numeric(14,2);not null"`
	TotalAmount          decimal.Decimal    `gorm:"column:total_amount;type:numeric(14,2);not null"`
	RequestedByUserID    *uuid.UUID         `gorm:"column:requested_by_user_id;type:uuid"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

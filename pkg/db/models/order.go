package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Order is the shopper-level purchase split across one or more suppliers.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopperUserID     uuid.UUID         `gorm:"column:shopper_user_id;type:uuid;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Subtotal          decimal.Decimal   `gorm:"column:subtotal;type:numeric(14,2);not null;default:0"`
	Tax               decimal.Decimal   `gorm:"column:tax;type:numeric(14,2);not null;default:0"`
	ServiceFeeBase    decimal.Decimal   `gorm:"column:service_fee_base;type:numeric(14,2);not null;default:0"`
	ServiceFeeComms   decimal.Decimal   `gorm:"column:service_fee_comms;type:numeric(14,2);not null;default:0"`
	ServiceFeeGateway decimal.Decimal   `gorm:"column:service_fee_gateway;type:numeric(14,2);not null;default:0"`
	ShippingPhone     *string           `gorm:"column:shipping_phone"`
	ShippingEmail     *string           `gorm:"column:shipping_email"`
	ShippingCountry   *string           `gorm:"column:shipping_country"`
	DeliveredAt       *time.Time        `gorm:"column:delivered_at"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a line on an Order bound to the supplier chosen to fulfill it.
type OrderItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	SupplierID     *uuid.UUID       `gorm:"column:supplier_id;type:uuid"`
	ProductName    string           `gorm:"column:product_name;not null"`
	Quantity       int              `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal  `gorm:"column:unit_price;type:numeric(14,2);not null"`
	LineTotal      *decimal.Decimal `gorm:"column:line_total;type:numeric(14,2)"`
	SupplierPayout decimal.Decimal  `gorm:"column:supplier_payout;type:numeric(14,2);not null;default:0"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// SupplierLedgerEntry is an append-only movement against a supplier balance.
type SupplierLedgerEntry struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID    uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	Type          enums.LedgerEntryType     `gorm:"column:type;type:text;not null"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter  decimal.Decimal           `gorm:"column:balance_after;type:numeric(14,2);not null"`
	ReferenceType enums.LedgerReferenceType `gorm:"column:reference_type;type:text;not null"`
	ReferenceID   uuid.UUID                 `gorm:"column:reference_id;type:uuid;not null"`
	Description   *string                   `gorm:"column:description"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

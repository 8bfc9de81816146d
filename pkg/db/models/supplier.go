package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// Supplier is a fulfilling business along with its payout bank profile.
type Supplier struct {
	ID                     uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID            uuid.UUID                    `gorm:"column:owner_user_id;type:uuid;not null"`
	Name                   string                       `gorm:"column:name;not null"`
	PayoutDisabled         bool                         `gorm:"column:payout_disabled;not null;default:false"`
	BankVerificationStatus enums.BankVerificationStatus `gorm:"column:bank_verification_status;type:text;not null;default:'pending'"`
	AccountNumber          *string                      `gorm:"column:account_number"`
	AccountName            *string                      `gorm:"column:account_name"`
	BankCode               *string                      `gorm:"column:bank_code"`
	Country                *string                      `gorm:"column:country"`
	CreatedAt              time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

// Rider is a delivery user currently working for at most one supplier.
type Rider struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	SupplierID *uuid.UUID `gorm:"column:supplier_id;type:uuid"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

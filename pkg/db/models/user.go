package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// User is the platform identity behind shoppers, supplier owners, riders and admins.
type User struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Email     *string         `gorm:"column:email"`
	Phone     *string         `gorm:"column:phone"`
	Role      enums.ActorRole `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

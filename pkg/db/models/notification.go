package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Notification is an in-app message addressed to one user or a role group.
type Notification struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientUserID *uuid.UUID               `gorm:"column:recipient_user_id;type:uuid"`
	RecipientGroup  *enums.NotificationGroup `gorm:"column:recipient_group;type:text"`
	Type            enums.NotificationType   `gorm:"column:type;type:text;not null"`
	Title           string                   `gorm:"column:title;type:text;not null"`
	Body            string                   `gorm:"column:body;type:text;not null"`
	Payload         types.JSONMap            `gorm:"column:payload;type:jsonb"`
	ReadAt          *time.Time               `gorm:"column:read_at"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}

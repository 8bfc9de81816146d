package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Delivery channels a message may be pushed through besides the in-app inbox.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Message is one notification addressed to a user or a role group.
// Channels, Contact and Secret only reach the channel sender; the stored
// inbox row never carries them.
type Message struct {
	RecipientUserID *uuid.UUID
	RecipientGroup  *enums.NotificationGroup
	Type            enums.NotificationType
	Title           string
	Body            string
	Payload         map[string]any

	Channels []string
	Contact  *Contact
	Secret   string
}

// Contact is where out-of-band channels reach the recipient.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// ToUser addresses a message to a single user.
func ToUser(userID uuid.UUID, typ enums.NotificationType, title, body string, payload map[string]any) Message {
	id := userID
	return Message{RecipientUserID: &id, Type: typ, Title: title, Body: body, Payload: payload}
}

// ToGroup addresses a message to every member of a role group.
func ToGroup(group enums.NotificationGroup, typ enums.NotificationType, title, body string, payload map[string]any) Message {
	g := group
	return Message{RecipientGroup: &g, Type: typ, Title: title, Body: body, Payload: payload}
}

// Notifier is the single dispatch operation core services call.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ChannelSender hands a delivery to out-of-band transports.
type ChannelSender interface {
	Send(ctx context.Context, delivery Delivery) error
}

// Delivery is the message published for channel workers.
type Delivery struct {
	NotificationID  uuid.UUID                `json:"notification_id"`
	RecipientUserID *uuid.UUID               `json:"recipient_user_id,omitempty"`
	RecipientGroup  *enums.NotificationGroup `json:"recipient_group,omitempty"`
	Type            enums.NotificationType   `json:"type"`
	Title           string                   `json:"title"`
	Body            string                   `json:"body"`
	Channels        []string                 `json:"channels"`
	Contact         *Contact                 `json:"contact,omitempty"`
	Secret          string                   `json:"secret,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher stores the inbox row and forwards channel deliveries.
type Dispatcher struct {
	repo   creator
	sender ChannelSender
	now    func() time.Time
}

// NewDispatcher builds a dispatcher. sender may be nil, in which case only
// inbox rows are written.
func NewDispatcher(repo creator, sender ChannelSender) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &Dispatcher{repo: repo, sender: sender, now: time.Now}, nil
}

// Notify persists msg and, when channels are requested, sends it on.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	if msg.RecipientUserID == nil && msg.RecipientGroup == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !msg.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification type %q", msg.Type))
	}
	if strings.TrimSpace(msg.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title required")
	}

	row := &models.Notification{
		ID:              uuid.New(),
		RecipientUserID: msg.RecipientUserID,
		RecipientGroup:  msg.RecipientGroup,
		Type:            msg.Type,
		Title:           msg.Title,
		Body:            msg.Body,
		Payload:         types.JSONMap(msg.Payload),
		CreatedAt:       d.now().UTC(),
	}
	if err := d.repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}

	if d.sender == nil || len(msg.Channels) == 0 {
		return nil
	}
	delivery := Delivery{
		NotificationID:  row.ID,
		RecipientUserID: row.RecipientUserID,
		RecipientGroup:  row.RecipientGroup,
		Type:            row.Type,
		Title:           row.Title,
		Body:            row.Body,
		Channels:        msg.Channels,
		Contact:         msg.Contact,
		Secret:          msg.Secret,
		CreatedAt:       row.CreatedAt,
	}
	if err := d.sender.Send(ctx, delivery); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send notification")
	}
	return nil
}

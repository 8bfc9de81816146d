package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
)

type fakeCreator struct {
	rows []*models.Notification
	err  error
}

func (f *fakeCreator) Create(ctx context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, n)
	return nil
}

type fakeSender struct {
	sent []Delivery
	err  error
}

func (f *fakeSender) Send(ctx context.Context, d Delivery) error {
	f.sent = append(f.sent, d)
	return f.err
}

func TestNotifyStoresInboxRowOnly(t *testing.T) {
	repo := &fakeCreator{}
	sender := &fakeSender{}
	d, err := NewDispatcher(repo, sender)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	msg := ToUser(uuid.New(), enums.NotificationTypePurchaseOrderStatus, "Order shipped", "On its way", map[string]any{"to": "SHIPPED"})
	if err := d.Notify(context.Background(), msg); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(repo.rows))
	}
	if repo.rows[0].Payload["to"] != "SHIPPED" {
		t.Fatalf("payload not stored: %+v", repo.rows[0].Payload)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("messages without channels must not reach the sender")
	}
}

func TestNotifySecretOnlyReachesSender(t *testing.T) {
	repo := &fakeCreator{}
	sender := &fakeSender{}
	d, _ := NewDispatcher(repo, sender)

	msg := ToUser(uuid.New(), enums.NotificationTypeDeliveryCode, "Your delivery code", "Share it with the rider", nil)
	msg.Channels = []string{ChannelSMS}
	msg.Contact = &Contact{Phone: "+2348031234567"}
	msg.Secret = "493817"
	if err := d.Notify(context.Background(), msg); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	stored := repo.rows[0]
	if strings.Contains(stored.Body, "493817") || strings.Contains(stored.Title, "493817") {
		t.Fatalf("secret leaked into inbox row")
	}
	if len(sender.sent) != 1 || sender.sent[0].Secret != "493817" {
		t.Fatalf("expected secret on channel delivery, got %+v", sender.sent)
	}
	if sender.sent[0].NotificationID != stored.ID {
		t.Fatalf("delivery should reference the stored notification")
	}
}

func TestNotifyValidatesAndWrapsFailures(t *testing.T) {
	d, _ := NewDispatcher(&fakeCreator{}, nil)
	err := d.Notify(context.Background(), Message{Type: enums.NotificationTypeActionCode, Title: "x"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing recipient, got %v", err)
	}

	err = d.Notify(context.Background(), ToGroup(enums.NotificationGroupAdmins, "bogus", "x", "y", nil))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}

	failing, _ := NewDispatcher(&fakeCreator{err: errors.New("db down")}, nil)
	err = failing.Notify(context.Background(), ToGroup(enums.NotificationGroupAdmins, enums.NotificationTypePurchaseOrderStatus, "x", "y", nil))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	sender := &fakeSender{err: errors.New("publish timeout")}
	d, _ = NewDispatcher(&fakeCreator{}, sender)
	msg := ToUser(uuid.New(), enums.NotificationTypeActionCode, "code", "body", nil)
	msg.Channels = []string{ChannelEmail}
	if err := d.Notify(context.Background(), msg); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected sender failure to surface, got %v", err)
	}
}

func TestPubSubSenderEncodesDelivery(t *testing.T) {
	var published *pubsub.Message
	sender, err := NewPubSubSender(func(ctx context.Context, msg *pubsub.Message) error {
		published = msg
		return nil
	})
	if err != nil {
		t.Fatalf("NewPubSubSender: %v", err)
	}

	delivery := Delivery{
		NotificationID: uuid.New(),
		Type:           enums.NotificationTypeDeliveryCode,
		Title:          "Your delivery code",
		Channels:       []string{ChannelSMS, ChannelEmail},
		Secret:         "111222",
	}
	if err := sender.Send(context.Background(), delivery); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if published.Attributes["channels"] != "sms,email" {
		t.Fatalf("unexpected channels attribute %q", published.Attributes["channels"])
	}
	var decoded Delivery
	if err := json.Unmarshal(published.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Secret != "111222" || decoded.NotificationID != delivery.NotificationID {
		t.Fatalf("unexpected payload %+v", decoded)
	}

	if _, err := NewPubSubSender(nil); err == nil {
		t.Fatalf("expected error for nil publish func")
	}
}

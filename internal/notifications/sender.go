package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// PublishFunc publishes one message and waits for the server acknowledgement.
type PublishFunc func(ctx context.Context, msg *pubsub.Message) error

// PublisherFunc adapts a Pub/Sub publisher handle.
func PublisherFunc(p *pubsub.Publisher) PublishFunc {
	return func(ctx context.Context, msg *pubsub.Message) error {
		_, err := p.Publish(ctx, msg).Get(ctx)
		return err
	}
}

// PubSubSender publishes deliveries to the notification topic that channel
// workers (SMS, email, push) consume.
type PubSubSender struct {
	publish PublishFunc
}

// NewPubSubSender wraps publish.
func NewPubSubSender(publish PublishFunc) (*PubSubSender, error) {
	if publish == nil {
		return nil, fmt.Errorf("publish func required")
	}
	return &PubSubSender{publish: publish}, nil
}

func (s *PubSubSender) Send(ctx context.Context, delivery Delivery) error {
	data, err := json.Marshal(delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"notification_id": delivery.NotificationID.String(),
			"type":            delivery.Type.String(),
			"channels":        strings.Join(delivery.Channels, ","),
		},
	}
	if err := s.publish(ctx, msg); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	commonredis "github.com/mehedi-exx/Hr/common/redis"
)

// Event types
const (
	TenantRegistered  = "tenant.registered"
	PaymentInitiated  = "payment.initiated"
	PaymentCompleted  = "payment.completed"
	SubscriptionGrant = "subscription.granted"
	SupportMessage    = "support.message"
)

// Event an out-of-band notification. Recipients are chat identities; Text is what they read.
type Event struct {
	Type       string         `json:"type"`
	TenantID   int64          `json:"tenant_id,omitempty"`
	Recipients []int64        `json:"-"`
	Text       string         `json:"text"`
	Data       map[string]any `json:"data,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Sender delivers a chat message; the telegram client implements it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ChatNotifier sends Text to each recipient. One failed recipient does not stop the others.
type ChatNotifier struct {
	sender Sender
	logger *zap.Logger
}

func NewChatNotifier(sender Sender, logger *zap.Logger) *ChatNotifier {
	return &ChatNotifier{sender: sender, logger: logger}
}

func (c *ChatNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, to := range ev.Recipients {
		if err := c.sender.SendMessage(ctx, to, ev.Text); err != nil {
			c.logger.Warn("Failed to deliver notification",
				zap.String("type", ev.Type),
				zap.Int64("chat_id", to),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("notify %d: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// Publisher MQTT publish side; common/mqtt.Client implements it.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTNotifier publishes events as JSON on <prefix>/<event type with dots as slashes>.
type MQTTNotifier struct {
	client Publisher
	prefix string
}

func NewMQTTNotifier(client Publisher, prefix string) *MQTTNotifier {
	return &MQTTNotifier{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// Topic for an event type.
func (m *MQTTNotifier) Topic(eventType string) string {
	return m.prefix + "/" + strings.ReplaceAll(eventType, ".", "/")
}

func (m *MQTTNotifier) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return m.client.Publish(m.Topic(ev.Type), false, payload)
}

// StreamNotifier appends events to a Redis Stream for downstream consumers.
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamNotifier(client *redis.Client, stream string, maxLen int64) *StreamNotifier {
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamNotifier) Notify(ctx context.Context, ev Event) error {
	_, err := commonredis.PublishJSONToStream(ctx, s.client, s.stream, ev.Type, ev, s.maxLen)
	return err
}

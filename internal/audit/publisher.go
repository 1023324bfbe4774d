package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"stoop/internal/platform/kafka"
)

// Publisher delivers one event to a sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	if e.Category == CategorySecurity {
		level = slog.LevelWarn
	}
	attrs := []any{
		"event_id", e.ID.String(),
		"category", e.Category,
		"action", e.Action,
		"account_id", e.AccountID,
		"phase", e.Phase,
		"reason", e.Reason,
		"request_id", e.RequestID,
		"client_ip", e.ClientIP,
	}
	if e.Device != nil {
		attrs = append(attrs, "device_browser", e.Device.Browser, "device_os", e.Device.OS, "device_bot", e.Device.Bot)
	}
	for k, v := range e.Attributes {
		attrs = append(attrs, k, v)
	}
	p.logger.Log(ctx, level, "audit event", attrs...)
	return nil
}

// KafkaProducer is the subset of the platform producer used here.
type KafkaProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// KafkaPublisher writes events as JSON keyed by account so per-account
// history stays ordered.
type KafkaPublisher struct {
	producer KafkaProducer
	topic    string
}

func NewKafkaPublisher(producer KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(struct {
		EventID string `json:"event_id"`
		Event
	}{EventID: e.ID.String(), Event: e})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := e.AccountID
	if key == "" {
		key = e.Email
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), body,
		kafka.Header{Key: "event_id", Value: e.ID.String()},
		kafka.Header{Key: "category", Value: string(e.Category)},
	)
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

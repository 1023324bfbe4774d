package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"stoop/internal/platform/kafka"
)

// Delivery is one code to be delivered to its owner.
type Delivery struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sender hands a code to whatever delivers it (mailer, queue, log).
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// LogSender writes codes to the log. Development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, d Delivery) error {
	s.logger.InfoContext(ctx, "otp code issued",
		"email", d.Email,
		"code", d.Code,
		"expires_at", d.ExpiresAt,
	)
	return nil
}

// Publisher is the subset of the Kafka producer the sender needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// KafkaSender enqueues deliveries for the mail worker, keyed by email so that
// a reissue lands on the same partition as the code it replaces.
type KafkaSender struct {
	publisher Publisher
	topic     string
}

func NewKafkaSender(publisher Publisher, topic string) *KafkaSender {
	return &KafkaSender{publisher: publisher, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode otp delivery: %w", err)
	}
	return s.publisher.Publish(ctx, s.topic, []byte(d.Email), body,
		kafka.Header{Key: "type", Value: "otp.delivery"},
	)
}

// Package kafka holds the shared franz-go producer used by the OTP sender and
// the audit publisher.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"stoop/internal/platform/config"
)

// Header is a record header.
type Header struct {
	Key   string
	Value string
}

// Producer publishes keyed records synchronously.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects to the configured brokers. It returns nil, nil when no
// brokers are configured.
func NewProducer(ctx context.Context, cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID("stoop-onboarding"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	return &Producer{client: client}, nil
}

// Publish writes one record and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...Header) error {
	rec := &kgo.Record{Topic: topic, Key: key, Value: value}
	for _, h := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: h.Key, Value: []byte(h.Value)})
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// EnsureTopics creates topics that do not exist yet.
func (p *Producer) EnsureTopics(ctx context.Context, partitions int32, replication int16, topics ...string) error {
	resps, err := kadm.NewClient(p.client).CreateTopics(ctx, partitions, replication, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	return topicErrors(resps)
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	p.client.Close()
}

func topicErrors(resps kadm.CreateTopicResponses) error {
	var errs []error
	for topic, resp := range resps {
		if resp.Err == nil || errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			continue
		}
		errs = append(errs, fmt.Errorf("topic %s: %w", topic, resp.Err))
	}
	return errors.Join(errs...)
}

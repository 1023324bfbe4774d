//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"stoop/internal/platform/config"
	"stoop/pkg/testutil/containers"
)

func TestProducerPublishesToBroker(t *testing.T) {
	broker := containers.NewRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p, err := NewProducer(ctx, config.KafkaConfig{Brokers: []string{broker}})
	require.NoError(t, err)
	require.NotNil(t, p)
	t.Cleanup(p.Close)

	require.NoError(t, p.EnsureTopics(ctx, 1, 1, "stoop.test.otp"))
	require.NoError(t, p.EnsureTopics(ctx, 1, 1, "stoop.test.otp"), "existing topics are not an error")

	require.NoError(t, p.Publish(ctx, "stoop.test.otp", []byte("jane@example.com"), []byte(`{"code":"123456"}`),
		Header{Key: "type", Value: "otp.delivery"},
	))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("stoop.test.otp"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "jane@example.com", string(records[0].Key))
	assert.Equal(t, "type", records[0].Headers[0].Key)
	assert.Equal(t, "otp.delivery", string(records[0].Headers[0].Value))
}

package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoop/internal/platform/kafka"
)

type recordingPublisher struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	r.topic, r.key, r.value, r.headers = topic, key, value, headers
	return nil
}

func TestKafkaSenderKeysByEmail(t *testing.T) {
	pub := &recordingPublisher{}
	expires := time.Date(2026, 5, 1, 9, 15, 0, 0, time.UTC)

	err := NewKafkaSender(pub, "stoop.onboarding.otp").Send(context.Background(), Delivery{
		Email: "a@x.io", Code: "123456", ExpiresAt: expires,
	})
	require.NoError(t, err)

	assert.Equal(t, "stoop.onboarding.otp", pub.topic)
	assert.Equal(t, []byte("a@x.io"), pub.key)
	assert.Equal(t, []kafka.Header{{Key: "type", Value: "otp.delivery"}}, pub.headers)

	var d Delivery
	require.NoError(t, json.Unmarshal(pub.value, &d))
	assert.Equal(t, "123456", d.Code)
	assert.True(t, expires.Equal(d.ExpiresAt))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, s.Send(context.Background(), Delivery{Email: "a@x.io", Code: "654321"}))
	assert.Contains(t, buf.String(), "code=654321")
}

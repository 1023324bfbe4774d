package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoop/internal/platform/kafka"
	"stoop/pkg/requestcontext"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type memoryPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *memoryPublisher) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *memoryPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestEnrich(t *testing.T) {
	fixed := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-9")
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", iphoneUA)

	e := Enrich(ctx, Event{Action: ActionLocationMismatch})

	assert.False(t, uuidZero(e.ID))
	assert.Equal(t, fixed, e.Timestamp)
	assert.Equal(t, "req-9", e.RequestID)
	assert.Equal(t, "198.51.100.7", e.ClientIP)
	require.NotNil(t, e.Device)
	assert.True(t, e.Device.Mobile)
	assert.False(t, e.Device.Bot)
	assert.Contains(t, e.Device.Browser, "Safari")
}

func TestParseDeviceFlagsBots(t *testing.T) {
	d := ParseDevice("Googlebot/2.1 (+http://www.google.com/bot.html)")
	assert.True(t, d.Bot)
}

func TestLogPublisherUsesWarnForSecurity(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, p.Publish(context.Background(), Event{
		Category:  CategorySecurity,
		Action:    ActionOutOfOrderTransition,
		AccountID: "acc-1",
	}))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "action=out_of_order_transition")
	assert.Contains(t, buf.String(), "account_id=acc-1")
}

type recordingProducer struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

func (r *recordingProducer) Publish(_ context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	r.topic, r.key, r.value, r.headers = topic, key, value, headers
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	prod := &recordingProducer{}
	e := Enrich(context.Background(), Event{
		Category:  CategorySecurity,
		Action:    ActionOTPLocked,
		Email:     "a@x.io",
		Timestamp: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
	})

	require.NoError(t, NewKafkaPublisher(prod, "audit").Publish(context.Background(), e))

	assert.Equal(t, "audit", prod.topic)
	assert.Equal(t, []byte("a@x.io"), prod.key, "falls back to email when no account")
	var body map[string]any
	require.NoError(t, json.Unmarshal(prod.value, &body))
	assert.Equal(t, e.ID.String(), body["event_id"])
	assert.Equal(t, "otp_locked", body["action"])
}

func TestMultiReturnsFirstError(t *testing.T) {
	ok := &memoryPublisher{}
	bad := &memoryPublisher{err: errors.New("broker down")}
	err := Multi{bad, ok}.Publish(context.Background(), Event{Action: ActionOTPSent})
	assert.EqualError(t, err, "broker down")
	assert.Equal(t, 1, ok.count(), "later sinks still receive the event")
}

func TestEmitterDrainsQueue(t *testing.T) {
	sink := &memoryPublisher{}
	em := NewEmitter(sink, 8, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = em.Run(ctx)
		close(done)
	}()

	for range 3 {
		em.Emit(context.Background(), Event{Action: ActionOTPSent})
	}
	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestEmitterDropsWhenFull(t *testing.T) {
	sink := &memoryPublisher{}
	em := NewEmitter(sink, 2, discardLogger())

	for range 5 {
		em.Emit(context.Background(), Event{Action: ActionOTPSent})
	}
	assert.Equal(t, int64(3), em.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, em.Run(ctx))
	assert.Equal(t, 2, sink.count(), "queued events are flushed on shutdown")
}

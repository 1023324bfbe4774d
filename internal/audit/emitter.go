package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Emitter decouples request handling from audit sinks: Emit enqueues without
// blocking and Run drains the queue into the publisher. When the queue is
// full the event is dropped and counted.
type Emitter struct {
	publisher Publisher
	queue     chan Event
	logger    *slog.Logger
	dropped   atomic.Int64
}

func NewEmitter(publisher Publisher, capacity int, logger *slog.Logger) *Emitter {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Emitter{publisher: publisher, queue: make(chan Event, capacity), logger: logger}
}

// Emit enriches e from ctx and enqueues it.
func (m *Emitter) Emit(ctx context.Context, e Event) {
	e = Enrich(ctx, e)
	select {
	case m.queue <- e:
	default:
		m.dropped.Add(1)
		m.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", e.Action,
			"account_id", e.AccountID,
		)
	}
}

// Dropped reports how many events were discarded.
func (m *Emitter) Dropped() int64 {
	return m.dropped.Load()
}

// Run publishes queued events until ctx is done, then flushes what is left
// with a short deadline.
func (m *Emitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.flush()
			return nil
		case e := <-m.queue:
			m.publish(ctx, e)
		}
	}
}

func (m *Emitter) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-m.queue:
			m.publish(ctx, e)
		default:
			return
		}
	}
}

func (m *Emitter) publish(ctx context.Context, e Event) {
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.ErrorContext(ctx, "audit publish failed",
			"error", err,
			"action", e.Action,
			"event_id", e.ID.String(),
		)
	}
}

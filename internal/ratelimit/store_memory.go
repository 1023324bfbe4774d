package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemory is a single-process sliding window store. It backs local
// development and stands in when Redis is unreachable.
type InMemory struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records a hit on every key when each of them has fewer than
// rule.Limit hits inside the window. A rejection records nothing, so a key
// that is over its limit never drains the budget of the others.
func (s *InMemory) Allow(_ context.Context, keys []string, rule Rule) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	windows := make([]*slidingWindow, len(keys))
	for i, key := range keys {
		sw := s.buckets[key]
		if sw == nil {
			sw = &slidingWindow{}
			s.buckets[key] = sw
		}
		sw.cleanup(now, rule.Window)
		if len(sw.timestamps) >= rule.Limit {
			return Result{
				Allowed: false,
				ResetAt: sw.timestamps[0].Add(rule.Window),
				Limit:   rule.Limit,
			}, nil
		}
		windows[i] = sw
	}

	res := Result{Allowed: true, Remaining: rule.Limit, ResetAt: now.Add(rule.Window), Limit: rule.Limit}
	for _, sw := range windows {
		sw.timestamps = append(sw.timestamps, now)
		if left := rule.Limit - len(sw.timestamps); left < res.Remaining {
			res.Remaining = left
			res.ResetAt = sw.timestamps[0].Add(rule.Window)
		}
	}
	return res, nil
}

// Reset clears the window for key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// cleanup drops timestamps that have left the window.
func (sw *slidingWindow) cleanup(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

package otp

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"stoop/pkg/platform/sentinel"
)

// MemoryStore keeps challenges in a map for tests and single-node development.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]*Challenge)}
}

func (s *MemoryStore) Save(_ context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.SupersededHashes = slices.Clone(c.SupersededHashes)
	s.challenges[c.Email] = &cp
	return nil
}

func (s *MemoryStore) Find(_ context.Context, email string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[email]
	if !ok {
		return nil, fmt.Errorf("otp challenge not found: %w", sentinel.ErrNotFound)
	}
	if c.IsExpired(now) {
		delete(s.challenges, email)
		return nil, fmt.Errorf("otp challenge expired: %w", sentinel.ErrNotFound)
	}
	cp := *c
	cp.SupersededHashes = slices.Clone(c.SupersededHashes)
	return &cp, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, email string, maxAttempts int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[email]
	if !ok {
		return 0, false, fmt.Errorf("otp challenge not found: %w", sentinel.ErrNotFound)
	}
	c.Attempts++
	if c.Attempts >= maxAttempts {
		c.Locked = true
	}
	return c.Attempts, c.Locked, nil
}

func (s *MemoryStore) Consume(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.challenges[email]; !ok {
		return fmt.Errorf("otp challenge already consumed: %w", sentinel.ErrAlreadyUsed)
	}
	delete(s.challenges, email)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, email)
	return nil
}

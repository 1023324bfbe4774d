// Package account persists onboarding accounts.
//
// Stores are pure I/O: they enforce email uniqueness and serialize updates
// per account, while phase rules live in the models and service. Both
// implementations return sentinel errors:
//
//   - ErrNotFound: no account for the ID or email
//   - ErrAlreadyUsed: Create hit an existing email
//
// Errors returned by an Execute validate callback are passed through
// unchanged and nothing is written.
package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stoop/internal/onboarding/models"
	id "stoop/pkg/domain"
	"stoop/pkg/platform/sentinel"
)

// InMemory keeps accounts in maps guarded by a single mutex.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.AccountID]*models.Account
	byEmail map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.AccountID]*models.Account),
		byEmail: make(map[string]id.AccountID),
	}
}

func (s *InMemory) Create(_ context.Context, a *models.Account) error {
	if a == nil {
		return fmt.Errorf("account is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[a.Email]; taken {
		return fmt.Errorf("email %s: %w", a.Email, sentinel.ErrAlreadyUsed)
	}
	if _, taken := s.byID[a.ID]; taken {
		return fmt.Errorf("account %s: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	s.byID[a.ID] = clone(a)
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
	}
	return clone(a), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("account for %s: %w", email, sentinel.ErrNotFound)
	}
	return clone(s.byID[accountID]), nil
}

// Execute runs validate and mutate on a copy while holding the write lock, and
// stores the copy only if validate succeeded.
func (s *InMemory) Execute(_ context.Context, accountID id.AccountID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, sentinel.ErrNotFound)
	}
	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.byID[accountID] = working
	return clone(working), nil
}

// clone deep-copies the pointer and slice fields so callers never share
// state with the store.
func clone(a *models.Account) *models.Account {
	cp := *a
	if a.Address != nil {
		addr := *a.Address
		cp.Address = &addr
	}
	if a.Business != nil {
		b := *a.Business
		if a.Business.Hours != nil {
			b.Hours = make(models.WeeklyHours, len(a.Business.Hours))
			for day, h := range a.Business.Hours {
				b.Hours[day] = h
			}
		}
		if a.Business.Neighborhoods != nil {
			b.Neighborhoods = append([]string(nil), a.Business.Neighborhoods...)
		}
		cp.Business = &b
	}
	cp.EmailConfirmedAt = cloneTime(a.EmailConfirmedAt)
	cp.Verification.CapturedAt = cloneTime(a.Verification.CapturedAt)
	cp.Verification.VerifiedAt = cloneTime(a.Verification.VerifiedAt)
	cp.Verification.LastAttemptAt = cloneTime(a.Verification.LastAttemptAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

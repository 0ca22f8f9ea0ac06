// Package store provides subscription persistence backends.
package store

import (
	"context"
	"sync"
	"time"

	"verdant/internal/subscription/models"
	"verdant/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded subscription store keyed by user ID.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[string]*models.Subscription
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[string]*models.Subscription)}
}

func (s *InMemory) FindByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sub.Clone(), nil
}

// Upsert replaces the member's subscription.
func (s *InMemory) Upsert(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[sub.UserID] = sub.Clone()
	return nil
}

// ExpireDue flips every active subscription whose end date has passed to
// expired and returns how many rows changed. Running it twice over the same
// instant changes nothing the second time.
func (s *InMemory) ExpireDue(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired int
	for _, sub := range s.byUser {
		if sub.DueForExpiry(now) {
			sub.Status = models.StatusExpired
			sub.UpdatedAt = now
			expired++
		}
	}
	return expired, nil
}

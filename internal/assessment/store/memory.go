// Package store provides assessment persistence backends.
package store

import (
	"context"
	"sync"

	"verdant/internal/assessment/models"
	"verdant/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded assessment store keyed by user ID.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[string]*models.Assessment
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[string]*models.Assessment)}
}

func (s *InMemory) FindByUserID(_ context.Context, userID string) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

// Execute loads the user's assessment under the write lock, creating it via
// init when absent, then runs validate and mutate while still holding the
// lock. Guard checks and the mutation they protect are a single atomic step.
func (s *InMemory) Execute(ctx context.Context, userID string,
	init func() *models.Assessment,
	validate func(*models.Assessment) error,
	mutate func(*models.Assessment)) (*models.Assessment, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byUser[userID]
	if !ok {
		a = init()
	}

	if err := validate(a); err != nil {
		return nil, err
	}
	mutate(a)
	s.byUser[userID] = a
	return a.Clone(), nil
}

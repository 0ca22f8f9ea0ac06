// Package store provides account persistence backends.
package store

import (
	"context"
	"strings"
	"sync"

	"verdant/internal/identity"
	"verdant/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded account store for tests and single-node runs.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*identity.Account
	byEmail map[string]*identity.Account
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*identity.Account),
		byEmail: make(map[string]*identity.Account),
	}
}

func (s *InMemory) CreateIfEmailAvailable(_ context.Context, acct *identity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(acct.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}

	clone := *acct
	s.byID[acct.ID] = &clone
	s.byEmail[key] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *acct
	return &clone, nil
}

func (s *InMemory) FindByEmail(_ context.Context, addr string) (*identity.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byEmail[strings.ToLower(addr)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *acct
	return &clone, nil
}

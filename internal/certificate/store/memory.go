// Package store provides certificate persistence backends.
package store

import (
	"context"
	"sync"

	"verdant/internal/certificate/models"
	"verdant/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded certificate store keyed by user ID.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[string]*models.Certificate
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[string]*models.Certificate)}
}

func (s *InMemory) FindByUserID(_ context.Context, userID string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cert.Clone(), nil
}

// CreateIfAbsent inserts the certificate unless the user already has one.
// Two concurrent first issuances resolve to exactly one winner; the loser
// gets ErrConflict and re-reads.
func (s *InMemory) CreateIfAbsent(_ context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUser[cert.UserID]; taken {
		return sentinel.ErrConflict
	}
	s.byUser[cert.UserID] = cert.Clone()
	return nil
}

// Execute runs validate and mutate on the user's certificate under the
// write lock.
func (s *InMemory) Execute(ctx context.Context, userID string,
	validate func(*models.Certificate) error,
	mutate func(*models.Certificate)) (*models.Certificate, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(cert); err != nil {
		return nil, err
	}
	mutate(cert)
	return cert.Clone(), nil
}

package store

import (
	"context"
	"strings"
	"sync"

	"verdant/internal/registration/models"
	"verdant/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the registration
// store. Email uniqueness and the Execute locking discipline mirror the
// Postgres implementation so services behave identically on either.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.Registration
	byEmail map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.Registration),
		byEmail: make(map[string]string),
	}
}

// CreateIfEmailAvailable inserts the registration unless the email is taken.
func (s *InMemory) CreateIfEmailAvailable(ctx context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(reg.Email)
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}
	s.byID[reg.ID] = reg.Clone()
	s.byEmail[key] = reg.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return reg.Clone(), nil
}

func (s *InMemory) FindByUserID(ctx context.Context, userID string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.byID {
		if reg.UserID == userID {
			return reg.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// Execute runs validate then mutate on the registration while holding the
// store lock, so a status check and the transition it guards are atomic.
// The mutated registration is persisted and a copy returned.
func (s *InMemory) Execute(
	ctx context.Context,
	id string,
	validate func(*models.Registration) error,
	mutate func(*models.Registration),
) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(reg); err != nil {
		return nil, err
	}
	mutate(reg)
	return reg.Clone(), nil
}

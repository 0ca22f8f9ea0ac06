// Package store provides notification persistence backends.
package store

import (
	"context"
	"sort"
	"sync"

	"verdant/internal/notification/models"
	"verdant/pkg/platform/sentinel"
)

// InMemory keeps notifications per user, newest first on list.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[string][]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[string][]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[n.UserID] = append(s.byUser[n.UserID], n.Clone())
	return nil
}

func (s *InMemory) ListByUserID(_ context.Context, userID string) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.byUser[userID]
	out := make([]*models.Notification, 0, len(rows))
	for _, n := range rows {
		out = append(out, n.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, n := range s.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead flips one of the user's notifications to read. Marking a foreign
// or unknown notification is ErrNotFound.
func (s *InMemory) MarkRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.byUser[userID] {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// Package store provides append-only score persistence backends.
package store

import (
	"context"
	"sync"

	"verdant/internal/scoring"
	"verdant/pkg/platform/sentinel"
)

// InMemory keeps score rows per user in append order.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[string][]scoring.Score
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[string][]scoring.Score)}
}

// Append records a scoring run. Rows are never updated or deleted.
func (s *InMemory) Append(_ context.Context, score scoring.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byUser[score.UserID] = append(s.byUser[score.UserID], score)
	return nil
}

// LatestByUserID returns the authoritative row: the one with the greatest
// ScoredAt, append order breaking ties.
func (s *InMemory) LatestByUserID(_ context.Context, userID string) (*scoring.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.byUser[userID]
	if len(rows) == 0 {
		return nil, sentinel.ErrNotFound
	}

	latest := rows[0]
	for _, row := range rows[1:] {
		if !row.ScoredAt.Before(latest.ScoredAt) {
			latest = row
		}
	}
	return &latest, nil
}

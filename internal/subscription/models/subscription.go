// Package models defines the subscription aggregate.
package models

import "time"

// Status of a subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Subscription is a member's plan membership. Each member has at most one
// current subscription; a new activation replaces the previous one in place.
type Subscription struct {
	ID        string
	UserID    string
	PlanName  string
	Price     float64
	Currency  string
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the subscription is live at the given instant.
func (s *Subscription) Active(at time.Time) bool {
	return s.Status == StatusActive && !s.EndDate.Before(at)
}

// DueForExpiry reports whether the sweep should expire the subscription.
func (s *Subscription) DueForExpiry(at time.Time) bool {
	return s.Status == StatusActive && s.EndDate.Before(at)
}

// Clone returns a copy safe to hand out of a store.
func (s *Subscription) Clone() *Subscription {
	clone := *s
	return &clone
}

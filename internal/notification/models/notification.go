// Package models defines in-app notifications.
package models

import "time"

// Type tags a notification for client-side rendering and filtering.
type Type string

const (
	TypeRegistration Type = "registration"
	TypeAssessment   Type = "assessment"
	TypeCertificate  Type = "certificate"
	TypeSubscription Type = "subscription"
)

// Notification is one in-app message for a member.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      Type
	Link      string
	IsRead    bool
	CreatedAt time.Time
}

// Clone returns a copy safe to hand out of a store.
func (n *Notification) Clone() *Notification {
	clone := *n
	return &clone
}
